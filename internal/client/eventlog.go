package client

import (
	"sync/atomic"
	"time"

	"github.com/emergent-labs/livedev/internal/event"
	"github.com/emergent-labs/livedev/pkg/ringbuf"
)

// LogEntry is one recorded event with its client-synthesized receipt
// metadata. Seq and ReceivedAt order the timeline display; they are
// never used for store reconciliation.
type LogEntry struct {
	Seq        int64 // arrival time in nanoseconds
	ReceivedAt time.Time
	Event      event.Event
}

// EventLog retains every successfully decoded event in arrival order,
// for timeline and debug display only. It is a parallel record: nothing
// is ever replayed from it into the store.
//
// The log is a ring buffer rather than the unbounded list the design
// allows, so long-running sessions do not grow without limit.
type EventLog struct {
	buf     *ringbuf.Buffer[LogEntry]
	lastSeq atomic.Int64
}

// DefaultEventLogCap bounds the event log when no cap is configured.
const DefaultEventLogCap = 1000

// NewEventLog creates a log retaining at most capacity entries.
func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = DefaultEventLogCap
	}
	return &EventLog{buf: ringbuf.New[LogEntry](capacity)}
}

// Record appends an event, stamping it with the local receipt time.
// Sequence ids are strictly increasing even when two events arrive
// within the same nanosecond tick.
func (l *EventLog) Record(ev event.Event) LogEntry {
	now := time.Now()
	seq := now.UnixNano()
	for {
		last := l.lastSeq.Load()
		if seq <= last {
			seq = last + 1
		}
		if l.lastSeq.CompareAndSwap(last, seq) {
			break
		}
	}

	entry := LogEntry{Seq: seq, ReceivedAt: now, Event: ev}
	l.buf.Append(entry)
	return entry
}

// Entries returns the retained entries, oldest first.
func (l *EventLog) Entries() []LogEntry {
	return l.buf.Items()
}

// Len returns the number of retained entries.
func (l *EventLog) Len() int {
	return l.buf.Len()
}
