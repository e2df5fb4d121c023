package timesheet

import "fmt"

// =============================================================================
// STATUS - Entry lifecycle
// =============================================================================
//
//   ┌───────┐  submit   ┌───────────┐  validate  ┌───────────┐
//   │ draft │ ────────▶ │ submitted │ ─────────▶ │ validated │
//   └───────┘           └───────────┘            └───────────┘
//       ▲                     │ reject
//       │    correct    ┌──────────┐
//       └────────────── │ rejected │
//                       └──────────┘

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusDraft, StatusSubmitted, StatusValidated, StatusRejected}

var transitions = map[Status]map[Status]bool{
	StatusDraft:     {StatusSubmitted: true},
	StatusSubmitted: {StatusValidated: true, StatusRejected: true},
	StatusRejected:  {StatusDraft: true},
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsEditable is true only for draft and rejected entries.
func IsEditable(s Status) bool {
	return s == StatusDraft || s == StatusRejected
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusValidated, StatusRejected:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown entry status %q", s)
	}
	return st, nil
}
