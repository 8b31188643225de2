package services

import (
	"errors"
	"testing"

	"github.com/weak-excuse/api-go/types"
)

func TestNext(t *testing.T) {
	all := []types.IncidentStatus{
		types.StatusPending, types.StatusAccepted, types.StatusDisputed,
		types.StatusConfirmed, types.StatusRejected, types.StatusExpired,
	}
	events := []Event{EventAccept, EventDeny, EventConfirm, EventReject, EventExpire}
	allowed := map[types.IncidentStatus]map[Event]types.IncidentStatus{
		types.StatusPending: {
			EventAccept: types.StatusAccepted,
			EventDeny:   types.StatusDisputed,
			EventExpire: types.StatusExpired,
		},
		types.StatusDisputed: {
			EventConfirm: types.StatusConfirmed,
			EventReject:  types.StatusRejected,
			EventExpire:  types.StatusExpired,
		},
	}

	for _, from := range all {
		for _, ev := range events {
			got, err := Next(from, ev)
			want, ok := allowed[from][ev]
			if !ok {
				if !errors.Is(err, ErrInvalidState) {
					t.Errorf("Next(%s, %s) error = %v, want ErrInvalidState", from, ev, err)
				}
				if got != from {
					t.Errorf("Next(%s, %s) = %s on failure, want unchanged", from, ev, got)
				}
				continue
			}
			if err != nil || got != want {
				t.Errorf("Next(%s, %s) = %s, %v; want %s", from, ev, got, err, want)
			}
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for key := range transitions {
		if key.from.IsTerminal() {
			t.Errorf("transition out of terminal status %s on %s", key.from, key.event)
		}
	}
}

func TestInitialStatus(t *testing.T) {
	if got := InitialStatus(true); got != types.StatusAccepted {
		t.Errorf("InitialStatus(self-report) = %s", got)
	}
	if got := InitialStatus(false); got != types.StatusPending {
		t.Errorf("InitialStatus(accusation) = %s", got)
	}
}
