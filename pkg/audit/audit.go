package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action types for entitlement audit events
type Action string

const (
	ActionIssue     Action = "issue"
	ActionRedeem    Action = "redeem"
	ActionProvision Action = "provision"
	ActionRevoke    Action = "revoke"
	ActionUnrevoke  Action = "unrevoke"
)

// ResourceType identifies what an event touched
type ResourceType string

const (
	ResourceLicense ResourceType = "license"
	ResourceUser    ResourceType = "user"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Event is a single audit log entry
type Event struct {
	ID           string       `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	UserID       string       `json:"user_id,omitempty"`
	ActorID      string       `json:"actor_id,omitempty"`
	Action       Action       `json:"action"`
	ResourceType ResourceType `json:"resource_type"`
	ResourceID   string       `json:"resource_id,omitempty"`
	Status       Status       `json:"status"`
	Detail       string       `json:"detail,omitempty"`
}

// Filter narrows event retrieval
type Filter struct {
	UserID       string
	Action       Action
	ResourceType ResourceType
	Status       Status
	Since        *time.Time
}

// Recorder is implemented by audit sinks
type Recorder interface {
	Record(event *Event) error
}

// Log keeps the most recent events in a fixed-size circular buffer
type Log struct {
	events []*Event
	size   int
	index  int
	count  int
	mu     sync.RWMutex
}

// NewLog creates an audit log retaining up to size events
func NewLog(size int) *Log {
	return &Log{
		events: make([]*Event, size),
		size:   size,
	}
}

// Record stores an audit event, stamping ID and timestamp if unset
func (l *Log) Record(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	l.events[l.index] = event
	l.index = (l.index + 1) % l.size
	if l.count < l.size {
		l.count++
	}

	return nil
}

// Events retrieves stored events, oldest first, with optional filtering
func (l *Log) Events(filter *Filter) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Event, 0, l.count)
	for i := 0; i < l.count; i++ {
		idx := (l.index - l.count + i + l.size) % l.size
		event := l.events[idx]
		if event == nil || !matches(event, filter) {
			continue
		}
		result = append(result, event)
	}

	return result
}

// Recent returns the n most recent events, newest first
func (l *Log) Recent(n int) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.count {
		n = l.count
	}

	result := make([]*Event, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.index - 1 - i + l.size) % l.size
		if l.events[idx] != nil {
			result = append(result, l.events[idx])
		}
	}

	return result
}

// Count returns the number of events currently retained
func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

func matches(event *Event, filter *Filter) bool {
	if filter == nil {
		return true
	}
	if filter.UserID != "" && event.UserID != filter.UserID {
		return false
	}
	if filter.Action != "" && event.Action != filter.Action {
		return false
	}
	if filter.ResourceType != "" && event.ResourceType != filter.ResourceType {
		return false
	}
	if filter.Status != "" && event.Status != filter.Status {
		return false
	}
	if filter.Since != nil && event.Timestamp.Before(*filter.Since) {
		return false
	}
	return true
}

// String returns a human-readable representation of an event
func (e *Event) String() string {
	return fmt.Sprintf("[%s] %s %s %s (user: %s, status: %s)",
		e.Timestamp.Format(time.RFC3339),
		e.Action,
		e.ResourceType,
		e.ResourceID,
		e.UserID,
		e.Status,
	)
}
