package services

import (
	"fmt"

	"github.com/weak-excuse/api-go/types"
)

// Event is something that can move an incident between statuses.
type Event string

const (
	EventAccept  Event = "accept"
	EventDeny    Event = "deny"
	EventConfirm Event = "confirm"
	EventReject  Event = "reject"
	EventExpire  Event = "expire"
)

type transitionKey struct {
	from  types.IncidentStatus
	event Event
}

var transitions = map[transitionKey]types.IncidentStatus{
	{types.StatusPending, EventAccept}:   types.StatusAccepted,
	{types.StatusPending, EventDeny}:     types.StatusDisputed,
	{types.StatusDisputed, EventConfirm}: types.StatusConfirmed,
	{types.StatusDisputed, EventReject}:  types.StatusRejected,
	{types.StatusPending, EventExpire}:   types.StatusExpired,
	{types.StatusDisputed, EventExpire}:  types.StatusExpired,
}

// InitialStatus is the status a new incident is created in. Self-reports skip
// the dispute phase entirely.
func InitialStatus(isSelfReport bool) types.IncidentStatus {
	if isSelfReport {
		return types.StatusAccepted
	}
	return types.StatusPending
}

// Next returns the status reached from `from` on ev, or ErrInvalidState.
func Next(from types.IncidentStatus, ev Event) (types.IncidentStatus, error) {
	to, ok := transitions[transitionKey{from, ev}]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s an incident that is %s", ErrInvalidState, ev, from)
	}
	return to, nil
}

// resolutionEvent maps an evaluator outcome onto the event that applies it.
func resolutionEvent(r types.Resolution) (Event, bool) {
	switch r {
	case types.ResolutionConfirmed:
		return EventConfirm, true
	case types.ResolutionRejected:
		return EventReject, true
	}
	return "", false
}
