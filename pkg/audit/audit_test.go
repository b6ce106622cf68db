package audit

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRecordStampsIDAndTimestamp(t *testing.T) {
	log := NewLog(10)

	event := &Event{
		Action:       ActionIssue,
		ResourceType: ResourceLicense,
		ResourceID:   "KEY-1",
		Status:       StatusSuccess,
	}
	if err := log.Record(event); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if event.ID == "" {
		t.Error("Record() did not assign an ID")
	}
	if event.Timestamp.IsZero() {
		t.Error("Record() did not stamp a timestamp")
	}
}

func TestRecordPreservesExplicitFields(t *testing.T) {
	log := NewLog(10)

	ts := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	event := &Event{ID: "fixed-id", Timestamp: ts, Action: ActionRedeem}
	log.Record(event)

	if event.ID != "fixed-id" || !event.Timestamp.Equal(ts) {
		t.Errorf("Record() overwrote explicit fields: %+v", event)
	}
}

func TestCircularBufferWraps(t *testing.T) {
	log := NewLog(3)

	for i := 0; i < 5; i++ {
		log.Record(&Event{
			Action:     ActionIssue,
			ResourceID: fmt.Sprintf("KEY-%d", i),
		})
	}

	if log.Count() != 3 {
		t.Errorf("Count() = %d, want 3", log.Count())
	}

	events := log.Events(nil)
	if len(events) != 3 {
		t.Fatalf("Events() returned %d, want 3", len(events))
	}
	// Oldest first: KEY-2, KEY-3, KEY-4
	for i, want := range []string{"KEY-2", "KEY-3", "KEY-4"} {
		if events[i].ResourceID != want {
			t.Errorf("Events()[%d] = %s, want %s", i, events[i].ResourceID, want)
		}
	}
}

func TestRecentNewestFirst(t *testing.T) {
	log := NewLog(10)
	for i := 0; i < 4; i++ {
		log.Record(&Event{ResourceID: fmt.Sprintf("KEY-%d", i)})
	}

	recent := log.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d events", len(recent))
	}
	if recent[0].ResourceID != "KEY-3" || recent[1].ResourceID != "KEY-2" {
		t.Errorf("Recent() order = %s, %s; want KEY-3, KEY-2", recent[0].ResourceID, recent[1].ResourceID)
	}

	// Asking for more than stored returns what exists
	if got := log.Recent(100); len(got) != 4 {
		t.Errorf("Recent(100) returned %d events, want 4", len(got))
	}
}

func TestEventsFilter(t *testing.T) {
	log := NewLog(20)

	log.Record(&Event{UserID: "user-1", Action: ActionRedeem, Status: StatusSuccess})
	log.Record(&Event{UserID: "user-1", Action: ActionRevoke, Status: StatusSuccess})
	log.Record(&Event{UserID: "user-2", Action: ActionRedeem, Status: StatusFailure})

	tests := []struct {
		name   string
		filter *Filter
		want   int
	}{
		{"No filter", nil, 3},
		{"By user", &Filter{UserID: "user-1"}, 2},
		{"By action", &Filter{Action: ActionRedeem}, 2},
		{"By status", &Filter{Status: StatusFailure}, 1},
		{"User and action", &Filter{UserID: "user-1", Action: ActionRedeem}, 1},
		{"No match", &Filter{UserID: "ghost"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(log.Events(tt.filter)); got != tt.want {
				t.Errorf("Events(%+v) returned %d, want %d", tt.filter, got, tt.want)
			}
		})
	}
}

func TestEventsSinceFilter(t *testing.T) {
	log := NewLog(10)

	old := time.Now().Add(-time.Hour)
	log.Record(&Event{ResourceID: "old", Timestamp: old})
	log.Record(&Event{ResourceID: "new"})

	cutoff := time.Now().Add(-time.Minute)
	events := log.Events(&Filter{Since: &cutoff})
	if len(events) != 1 || events[0].ResourceID != "new" {
		t.Errorf("Since filter returned %d events", len(events))
	}
}

func TestEventString(t *testing.T) {
	e := &Event{
		Timestamp:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		UserID:       "user-1",
		Action:       ActionRevoke,
		ResourceType: ResourceUser,
		ResourceID:   "user-1",
		Status:       StatusSuccess,
	}

	s := e.String()
	for _, want := range []string{"revoke", "user-1", "success", "2026-08-01"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
