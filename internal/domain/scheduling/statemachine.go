package scheduling

import (
	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

type Action string

const (
	ActionPropose Action = "propose"
	ActionConfirm Action = "confirm"
	ActionCounter Action = "counter"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
)

// awaiting is the role whose answer a pending appointment waits for.
func awaiting(s Status) auth.Role {
	switch s {
	case StatusPendingPatient:
		return auth.RolePatient
	case StatusPendingLab:
		return auth.RoleLabStaff
	}
	return ""
}

func otherParty(r auth.Role) Status {
	if r == auth.RolePatient {
		return StatusPendingLab
	}
	return StatusPendingPatient
}

// nextStatus validates action by role on an appointment in from and returns
// the resulting status.
func nextStatus(action Action, role auth.Role, from Status) (Status, error) {
	if action == ActionCancel {
		if role != auth.RoleLabStaff {
			return "", apperr.Forbidden("Only lab staff can cancel appointments")
		}
		switch from {
		case StatusCancelled:
			return "", apperr.InvalidState("Appointment is already cancelled")
		case StatusRejected:
			return "", apperr.InvalidState("Appointment was rejected")
		}
		return StatusCancelled, nil
	}

	switch from {
	case StatusConfirmed:
		return "", apperr.InvalidState("Appointment is already confirmed")
	case StatusCancelled:
		return "", apperr.InvalidState("Appointment is cancelled")
	case StatusRejected:
		return "", apperr.InvalidState("Appointment was rejected")
	}
	if awaiting(from) != role {
		return "", apperr.InvalidState("Appointment is awaiting the other party")
	}

	switch action {
	case ActionConfirm:
		return StatusConfirmed, nil
	case ActionCounter:
		return otherParty(role), nil
	case ActionReject:
		return StatusRejected, nil
	}
	return "", apperr.Validation("unknown appointment action %q", action)
}
