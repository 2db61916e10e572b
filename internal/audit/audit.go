// Package audit records security-relevant events (launch attempts, ticket
// reuse, submissions) as structured logs, distinct from ordinary error
// logging, and fans them out to live subscribers.
package audit

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Actions recorded by the gate and the submission path.
const (
	ActionLaunch = "launch"
	ActionStart  = "start"
	ActionSubmit = "submit"
)

// Event is one security-relevant occurrence. Outcome is "allowed" or
// "denied"; Reason names the failing check for denied events.
type Event struct {
	Time       time.Time `json:"time"`
	Action     string    `json:"action"`
	StudentID  string    `json:"studentId"`
	QuizID     string    `json:"quizId"`
	RemoteAddr string    `json:"remoteAddr,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
}

// Recorder writes events to the audit log and broadcasts them to
// subscribers (the operations websocket stream).
type Recorder struct {
	log *zap.Logger
	now func() time.Time

	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

func NewRecorder(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		log:         log.Named("audit"),
		now:         time.Now,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Allowed records a successful gate passage.
func (r *Recorder) Allowed(action, studentID, quizID, remoteAddr, userAgent string) {
	r.record(Event{
		Action:     action,
		StudentID:  studentID,
		QuizID:     quizID,
		RemoteAddr: remoteAddr,
		UserAgent:  userAgent,
		Outcome:    "allowed",
	})
}

// Denied records a rejection with the failing check's name.
func (r *Recorder) Denied(action, studentID, quizID, remoteAddr, userAgent, reason string) {
	r.record(Event{
		Action:     action,
		StudentID:  studentID,
		QuizID:     quizID,
		RemoteAddr: remoteAddr,
		UserAgent:  userAgent,
		Outcome:    "denied",
		Reason:     reason,
	})
}

func (r *Recorder) record(ev Event) {
	ev.Time = r.now()

	fields := []zap.Field{
		zap.String("action", ev.Action),
		zap.String("studentId", ev.StudentID),
		zap.String("quizId", ev.QuizID),
		zap.String("outcome", ev.Outcome),
	}
	if ev.RemoteAddr != "" {
		fields = append(fields, zap.String("remoteAddr", ev.RemoteAddr))
	}
	if ev.Reason != "" {
		fields = append(fields, zap.String("reason", ev.Reason))
	}
	if ev.Outcome == "denied" {
		r.log.Warn("access event", fields...)
	} else {
		r.log.Info("access event", fields...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest pending event so a slow subscriber cannot
			// block the request path.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// Subscribe returns a channel of future events. The caller must invoke the
// returned cancel function to avoid leaks.
func (r *Recorder) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}
