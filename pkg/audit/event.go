// Package audit records every reconciliation job, dry run or not, as a
// JSON-lines event log.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/relayctl/pkg/relay"
)

// Event is one audited job against one device.
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	User        string         `json:"user"`
	Device      string         `json:"device"`
	Family      string         `json:"family,omitempty"`
	Operation   string         `json:"operation"`
	List        string         `json:"list,omitempty"`
	ListKey     string         `json:"list_key,omitempty"`
	Changes     []relay.Change `json:"changes"`
	Commands    []string       `json:"commands,omitempty"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	ExecuteMode bool           `json:"execute_mode"` // true if -x was used
	DryRun      bool           `json:"dry_run"`
	Committed   bool           `json:"committed"`
	Duration    time.Duration  `json:"duration"`
	SessionID   string         `json:"session_id,omitempty"`
}

// Operations recorded by the CLI.
const (
	OpEnforce = "relay.enforce"
	OpInspect = "device.inspect"
)

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Operation   string
	ListKey     string
	Interface   string // matches events with a change on the interface
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, device, operation string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Operation: operation,
	}
}

// WithList sets the authorized list and key the job reconciled against.
func (e *Event) WithList(list, key string) *Event {
	e.List = list
	e.ListKey = key
	return e
}

// WithPlan records the plan's family, relay changes and commands.
func (e *Event) WithPlan(p *relay.Plan) *Event {
	if p == nil {
		return e
	}
	e.Family = p.Family.String()
	e.Changes = p.Changes()
	e.Commands = p.Commands()
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks if execute mode was used
func (e *Event) WithExecuteMode(execute, commit bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	e.Committed = execute && commit
	return e
}

// WithSession tags the event with the session that produced it.
func (e *Event) WithSession(id string) *Event {
	e.SessionID = id
	return e
}

// touches reports whether the event changed anything on iface.
func (e *Event) touches(iface string) bool {
	for _, c := range e.Changes {
		if c.Interface == iface {
			return true
		}
	}
	return false
}
