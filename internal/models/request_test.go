package models

import "testing"

func TestStatusTransitions(t *testing.T) {
	allowed := []struct {
		from RequestStatus
		to   RequestStatus
	}{
		{StatusPending, StatusAccepted},
		{StatusPending, StatusRejected},
		{StatusAccepted, StatusCompleted},
		{StatusAccepted, StatusCancelled},
	}
	for _, tr := range allowed {
		if !tr.from.CanTransitionTo(tr.to) {
			t.Errorf("expected %s -> %s to be allowed", tr.from, tr.to)
		}
	}

	denied := []struct {
		from RequestStatus
		to   RequestStatus
	}{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusCancelled},
		{StatusAccepted, StatusPending},
		{StatusAccepted, StatusRejected},
		{StatusRejected, StatusAccepted},
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusRejected, StatusPending},
	}
	for _, tr := range denied {
		if tr.from.CanTransitionTo(tr.to) {
			t.Errorf("expected %s -> %s to be denied", tr.from, tr.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []RequestStatus{StatusRejected, StatusCompleted, StatusCancelled} {
		if !status.IsTerminal() {
			t.Errorf("expected %s to be terminal", status)
		}
	}
	for _, status := range []RequestStatus{StatusPending, StatusAccepted} {
		if status.IsTerminal() {
			t.Errorf("expected %s not to be terminal", status)
		}
	}
}

func TestStatusValid(t *testing.T) {
	if RequestStatus("archived").Valid() {
		t.Error("expected unknown status to be invalid")
	}
	if !StatusPending.Valid() {
		t.Error("expected pending to be valid")
	}
}
