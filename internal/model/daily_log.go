package model

// LogEntry is one habit's state for a day.
type LogEntry struct {
	Done bool   `json:"done"`
	Note string `json:"note,omitempty"`
}

// DailyLogRecord maps habit IDs to their entry for one day. It may hold IDs of
// habits that have since been removed.
type DailyLogRecord map[string]LogEntry

// Clone returns a copy that shares no state with r. A nil record clones to an
// empty one.
func (r DailyLogRecord) Clone() DailyLogRecord {
	out := make(DailyLogRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DoneCount returns the number of entries marked done.
func (r DailyLogRecord) DoneCount() int {
	n := 0
	for _, e := range r {
		if e.Done {
			n++
		}
	}
	return n
}

// HistoryWindow maps DateKeys to their record. Days without a stored record
// are absent.
type HistoryWindow map[string]DailyLogRecord
