package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/relayctl/pkg/cisco"
	"github.com/newtron-network/relayctl/pkg/relay"
)

func testPlan(t *testing.T) *relay.Plan {
	t.Helper()
	p, err := relay.ComputePlan("sw1", cisco.IOS,
		[]cisco.RelayInterface{{Name: "Vlan10", Relays: []string{"10.1.1.1", "10.2.2.2"}}},
		&relay.Lists{Key: "Site-001", Authorized: []string{"10.2.2.2"}})
	if err != nil {
		t.Fatalf("ComputePlan() error: %v", err)
	}
	return p
}

func newLogger(t *testing.T, rotation RotationConfig) (*FileLogger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit", "audit.log")
	logger, err := NewFileLogger(path, rotation)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger, path
}

func TestEvent_New(t *testing.T) {
	event := NewEvent("alice", "sw1", OpEnforce)

	if event.User != "alice" || event.Device != "sw1" || event.Operation != OpEnforce {
		t.Errorf("NewEvent() = %+v", event)
	}
	if _, err := uuid.Parse(event.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", event.ID, err)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if NewEvent("alice", "sw1", OpEnforce).ID == event.ID {
		t.Error("IDs should be unique")
	}
}

func TestEvent_Chaining(t *testing.T) {
	event := NewEvent("alice", "sw1", OpEnforce).
		WithList("DHCP Relays", "Site-001").
		WithPlan(testPlan(t)).
		WithSuccess().
		WithDuration(time.Second).
		WithExecuteMode(true, true).
		WithSession("s-1")

	if event.ListKey != "Site-001" || event.List != "DHCP Relays" {
		t.Errorf("list = %q/%q", event.List, event.ListKey)
	}
	if event.Family != "IOS" {
		t.Errorf("Family = %q", event.Family)
	}
	if len(event.Changes) != 2 || event.Changes[0].Type != relay.ChangeRemove {
		t.Errorf("Changes = %+v", event.Changes)
	}
	if len(event.Commands) != 3 || event.Commands[0] != "interface Vlan10" {
		t.Errorf("Commands = %q", event.Commands)
	}
	if !event.Success || event.Duration != time.Second || event.SessionID != "s-1" {
		t.Errorf("event = %+v", event)
	}
	if !event.ExecuteMode || event.DryRun || !event.Committed {
		t.Errorf("mode = execute:%v dry:%v committed:%v", event.ExecuteMode, event.DryRun, event.Committed)
	}
}

func TestEvent_WithPlanNil(t *testing.T) {
	event := NewEvent("alice", "sw1", OpEnforce).WithPlan(nil)
	if event.Changes != nil || event.Commands != nil {
		t.Errorf("event = %+v", event)
	}
}

func TestEvent_WithError(t *testing.T) {
	event := NewEvent("alice", "sw1", OpEnforce).WithError(errors.New("test error"))
	if event.Success || event.Error != "test error" {
		t.Errorf("event = %+v", event)
	}

	event2 := NewEvent("alice", "sw1", OpEnforce).WithError(nil)
	if event2.Success || event2.Error != "" {
		t.Errorf("event with nil error = %+v", event2)
	}
}

func TestEvent_ExecuteMode(t *testing.T) {
	tests := []struct {
		name                     string
		execute, commit          bool
		wantDryRun, wantCommited bool
	}{
		{"dry run", false, false, true, false},
		{"commit ignored in dry run", false, true, true, false},
		{"execute", true, false, false, false},
		{"execute and commit", true, true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvent("alice", "sw1", OpEnforce).WithExecuteMode(tt.execute, tt.commit)
			if e.DryRun != tt.wantDryRun || e.Committed != tt.wantCommited {
				t.Errorf("DryRun=%v Committed=%v", e.DryRun, e.Committed)
			}
		})
	}
}

func TestFileLogger_Basic(t *testing.T) {
	logger, _ := newLogger(t, RotationConfig{})

	event := NewEvent("alice", "sw1", OpEnforce).WithPlan(testPlan(t)).WithSuccess()
	if err := logger.Log(event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.ID != event.ID || got.User != "alice" || len(got.Changes) != 2 {
		t.Errorf("Query() = %+v", got)
	}
}

func TestFileLogger_QueryFilters(t *testing.T) {
	logger, _ := newLogger(t, RotationConfig{})
	plan := testPlan(t)

	logger.Log(NewEvent("alice", "sw1", OpEnforce).WithList("", "Site-001").WithPlan(plan).WithSuccess())
	logger.Log(NewEvent("bob", "sw1", OpInspect).WithSuccess())
	logger.Log(NewEvent("alice", "sw2", OpEnforce).WithList("", "Site-002").WithError(errors.New("failed")))
	logger.Log(NewEvent("charlie", "fw1", OpEnforce).WithList("", "Site-001").WithSuccess())

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"device", Filter{Device: "sw1"}, 2},
		{"user", Filter{User: "alice"}, 2},
		{"operation", Filter{Operation: OpEnforce}, 3},
		{"list key", Filter{ListKey: "Site-001"}, 2},
		{"interface", Filter{Interface: "Vlan10"}, 1},
		{"unknown interface", Filter{Interface: "Vlan99"}, 0},
		{"success only", Filter{SuccessOnly: true}, 3},
		{"failure only", Filter{FailureOnly: true}, 1},
		{"combined", Filter{User: "alice", SuccessOnly: true}, 1},
		{"limit", Filter{Limit: 2}, 2},
		{"offset", Filter{Offset: 3}, 1},
		{"offset past end", Filter{Offset: 10}, 0},
		{"time range", Filter{StartTime: time.Now().Add(-time.Hour), EndTime: time.Now().Add(time.Hour)}, 4},
		{"future start", Filter{StartTime: time.Now().Add(time.Hour)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := logger.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Query() returned %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFileLogger_MalformedLines(t *testing.T) {
	logger, path := newLogger(t, RotationConfig{})
	logger.Log(NewEvent("alice", "sw1", OpEnforce).WithSuccess())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not json\n")
	f.Close()
	logger.Log(NewEvent("bob", "sw2", OpEnforce).WithSuccess())

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected 2 events, got %d", len(events))
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	logger, path := newLogger(t, RotationConfig{MaxSize: 1, MaxBackups: 2})

	for i := 0; i < 5; i++ {
		if err := logger.Log(NewEvent("alice", "sw1", OpEnforce).WithSuccess()); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	backups, _ := filepath.Glob(path + ".*")
	if len(backups) != 2 {
		t.Errorf("Expected 2 backups, got %d: %v", len(backups), backups)
	}

	// The current file plus two single-event backups.
	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Error("events should be returned oldest first")
		}
	}
}

func TestFileLogger_QueryMissingFile(t *testing.T) {
	logger, path := newLogger(t, RotationConfig{})
	os.Remove(path)

	results, err := logger.Query(Filter{})
	if err != nil {
		t.Errorf("Query on a missing file should not error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Query() = %v, want empty", results)
	}
}

func TestDefaultLogger(t *testing.T) {
	SetDefaultLogger(nil)

	if err := Log(NewEvent("test", "test", "test")); err != nil {
		t.Errorf("Log with nil default should not error: %v", err)
	}
	results, err := Query(Filter{})
	if err != nil || len(results) != 0 {
		t.Errorf("Query with nil default = %v, %v", results, err)
	}

	logger, _ := newLogger(t, RotationConfig{})
	SetDefaultLogger(logger)
	defer SetDefaultLogger(nil)

	if err := Log(NewEvent("alice", "sw1", OpEnforce).WithSuccess()); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	results, err = Query(Filter{Device: "sw1"})
	if err != nil || len(results) != 1 {
		t.Errorf("Query() = %d events, %v", len(results), err)
	}
}
