package engine

import (
	"sync"
	"time"
)

// Event levels shown by the dashboard.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarn    = "warn"
	LevelError   = "error"
	LevelTrade   = "trade"
)

const (
	eventCap    = 500
	eventExport = 80
)

// Event is one dashboard log line.
type Event struct {
	Time    string `json:"t"`
	Message string `json:"msg"`
	Level   string `json:"lvl"`
}

// EventLog keeps the most recent events, newest first.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	limit  int
	now    func() time.Time
}

func NewEventLog(limit int, now func() time.Time) *EventLog {
	if limit <= 0 {
		limit = eventCap
	}
	if now == nil {
		now = time.Now
	}
	return &EventLog{limit: limit, now: now}
}

// Add prepends an event and drops the oldest one past the limit.
func (l *EventLog) Add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev := Event{Time: l.now().Format("15:04:05"), Message: msg, Level: level}
	l.events = append(l.events, Event{})
	copy(l.events[1:], l.events)
	l.events[0] = ev
	if len(l.events) > l.limit {
		l.events = l.events[:l.limit]
	}
}

// Recent returns up to n events, newest first.
func (l *EventLog) Recent(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	return append([]Event(nil), l.events[:n]...)
}

func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
