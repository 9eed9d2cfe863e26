// Package stats turns daily records into completion scores and the summary
// figures shown on the dashboard. Everything here is pure.
package stats

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/lifeos/internal/model"
)

// Summary describes a sequence of daily scores, oldest first.
type Summary struct {
	Best   int `json:"best"`
	Worst  int `json:"worst"`
	Streak int `json:"streak"`
	Missed int `json:"missed"`
}

// Category is one habit's share of all completions in a window.
type Category struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// HeatCell is one day of the heatmap.
type HeatCell struct {
	Date  string `json:"date"`
	Day   int    `json:"day"`
	Score int    `json:"score"`
	Level int    `json:"level"`
}

// Report bundles everything the stats views need for one window.
type Report struct {
	Days       int        `json:"days"`
	Keys       []string   `json:"keys"`
	Scores     []int      `json:"scores"`
	Summary    Summary    `json:"summary"`
	Average    int        `json:"average"`
	Today      int        `json:"today"`
	Message    string     `json:"message"`
	Tip        string     `json:"tip"`
	Categories []Category `json:"categories"`
	Heat       []HeatCell `json:"heat"`
}

// round rounds half away from zero, which for the non-negative values used
// here is half up.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Score is the percentage of active habits marked done in record. It is 0
// for an absent record or when there are no active habits, and never exceeds
// 100 even when record holds ids of removed habits.
func Score(record model.DailyLogRecord, active int) int {
	if active <= 0 || len(record) == 0 {
		return 0
	}
	s := round(float64(record.DoneCount()) / float64(active) * 100)
	if s > 100 {
		return 100
	}
	return s
}

// Scores scores each key of window in order. Missing days score 0.
func Scores(window model.HistoryWindow, keys []string, active int) []int {
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = Score(window[k], active)
	}
	return out
}

// Summarize computes best, worst, the trailing run of nonzero days, and the
// number of zero days. Best is at least 0 and worst at most 100, so an empty
// sequence yields 0 and 100.
func Summarize(scores []int) Summary {
	s := Summary{Best: 0, Worst: 100}
	for _, v := range scores {
		if v > s.Best {
			s.Best = v
		}
		if v < s.Worst {
			s.Worst = v
		}
		if v == 0 {
			s.Missed++
		}
	}
	for i := len(scores) - 1; i >= 0 && scores[i] > 0; i-- {
		s.Streak++
	}
	return s
}

// Average is the rounded mean of scores, 0 when empty.
func Average(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, v := range scores {
		sum += v
	}
	return round(float64(sum) / float64(len(scores)))
}

// Categories counts completions per habit across window. Ids that are not in
// habits are ignored. The result is ordered by percentage, highest first,
// keeping habit order on ties.
func Categories(window model.HistoryWindow, habits []model.HabitDefinition) []Category {
	cats := make([]Category, len(habits))
	total := 0
	for i, h := range habits {
		cats[i] = Category{ID: h.ID, Label: h.Label}
		for _, record := range window {
			if record[h.ID].Done {
				cats[i].Count++
				total++
			}
		}
	}
	if total > 0 {
		for i := range cats {
			cats[i].Percent = round(float64(cats[i].Count) / float64(total) * 100)
		}
	}
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Percent > cats[j].Percent })
	return cats
}

// HeatLevel buckets a score into heatmap levels 1 through 5.
func HeatLevel(score int) int {
	switch {
	case score >= 85:
		return 5
	case score >= 70:
		return 4
	case score >= 55:
		return 3
	case score >= 40:
		return 2
	default:
		return 1
	}
}

// Message is the short line shown under today's score.
func Message(score int) string {
	switch {
	case score >= 80:
		return "You showed up today."
	case score >= 60:
		return "Steady and honest progress."
	case score >= 40:
		return "Data before judgment."
	default:
		return "A quiet reset is still progress."
	}
}

var tips = []string{
	"Consistency is the compounding interest of life.",
	"Data doesn't lie, but it can forgive.",
	"Small steps every day add up to big results.",
	"Don't break the chain.",
	"Focus on the process, not the outcome.",
}

// Tip is the insight line for the day named by dateKey. It changes once a day
// and is the same for every request on that day.
func Tip(dateKey string) string {
	t, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return tips[0]
	}
	day := t.Unix() / 86400
	return tips[int(day%int64(len(tips)))]
}

// BuildReport scores every key of window against habits. keys must be
// ordered oldest first; the last key is treated as today.
func BuildReport(window model.HistoryWindow, keys []string, habits []model.HabitDefinition) Report {
	scores := Scores(window, keys, len(habits))
	heat := make([]HeatCell, len(keys))
	for i, k := range keys {
		heat[i] = HeatCell{Date: k, Day: dayOfMonth(k), Score: scores[i], Level: HeatLevel(scores[i])}
	}

	today, todayKey := 0, ""
	if len(scores) > 0 {
		today = scores[len(scores)-1]
		todayKey = keys[len(keys)-1]
	}

	return Report{
		Days:       len(keys),
		Keys:       keys,
		Scores:     scores,
		Summary:    Summarize(scores),
		Average:    Average(scores),
		Today:      today,
		Message:    Message(today),
		Tip:        Tip(todayKey),
		Categories: Categories(window, habits),
		Heat:       heat,
	}
}

func dayOfMonth(key string) int {
	i := strings.LastIndexByte(key, '-')
	if i < 0 {
		return 0
	}
	d, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return 0
	}
	return d
}
