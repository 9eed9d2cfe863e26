package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/dukerupert/lifeos/internal/model"
	"github.com/google/uuid"
)

// Memory is an in-process Store. It backs tests and the "memory" remote mode,
// where it stands in for the hosted backend without persisting anything.
type Memory struct {
	mu       sync.Mutex
	logs     map[string]map[string]model.DailyLogRecord
	settings map[string][]model.HabitDefinition
	subs     map[string]*memorySub
	calls    map[string]int
	failErr  error
}

type memorySub struct {
	m      *Memory
	id     string
	userID string
	date   string
	fn     UpdateFunc
}

func (s *memorySub) Close() error {
	s.m.mu.Lock()
	delete(s.m.subs, s.id)
	s.m.mu.Unlock()
	return nil
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		logs:     make(map[string]map[string]model.DailyLogRecord),
		settings: make(map[string][]model.HabitDefinition),
		subs:     make(map[string]*memorySub),
		calls:    make(map[string]int),
	}
}

// SetError makes every data call fail with err until cleared with nil.
// Subscribe and CurrentUser are unaffected.
func (m *Memory) SetError(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

// CallCount returns how many times the named method has been invoked.
func (m *Memory) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// SubscriberCount returns the number of open subscriptions.
func (m *Memory) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Memory) begin(method string) error {
	m.calls[method]++
	return m.failErr
}

func (m *Memory) CurrentUser(ctx context.Context) (Identity, error) {
	m.mu.Lock()
	m.calls["CurrentUser"]++
	m.mu.Unlock()
	return SessionIdentity(ctx)
}

func (m *Memory) GetDailyLog(_ context.Context, userID, date string) (model.DailyLogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("GetDailyLog"); err != nil {
		return nil, err
	}
	rec, ok := m.logs[userID][date]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) UpsertDailyLog(_ context.Context, userID, date string, record model.DailyLogRecord) error {
	m.mu.Lock()
	if err := m.begin("UpsertDailyLog"); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.logs[userID] == nil {
		m.logs[userID] = make(map[string]model.DailyLogRecord)
	}
	m.logs[userID][date] = record.Clone()

	var targets []UpdateFunc
	for _, s := range m.subs {
		if s.userID == userID && s.date == date {
			targets = append(targets, s.fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range targets {
		fn(record.Clone())
	}
	return nil
}

func (m *Memory) ListDailyLogs(_ context.Context, userID, start, end string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("ListDailyLogs"); err != nil {
		return nil, err
	}
	rows := []Row{}
	for date, rec := range m.logs[userID] {
		if date >= start && date <= end {
			rows = append(rows, Row{Date: date, Record: rec.Clone()})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

func (m *Memory) GetSettings(_ context.Context, userID string) ([]model.HabitDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("GetSettings"); err != nil {
		return nil, err
	}
	habits, ok := m.settings[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.HabitDefinition, len(habits))
	copy(out, habits)
	return out, nil
}

func (m *Memory) UpsertSettings(_ context.Context, userID string, habits []model.HabitDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("UpsertSettings"); err != nil {
		return err
	}
	stored := make([]model.HabitDefinition, len(habits))
	copy(stored, habits)
	m.settings[userID] = stored
	return nil
}

func (m *Memory) Subscribe(_ context.Context, userID, date string, fn UpdateFunc) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Subscribe"]++
	s := &memorySub{m: m, id: uuid.NewString(), userID: userID, date: date, fn: fn}
	m.subs[s.id] = s
	return s, nil
}
