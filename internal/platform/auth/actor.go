package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of actor roles.
type Role string

const (
	RolePatient  Role = "patient"
	RoleDoctor   Role = "doctor"
	RoleLabStaff Role = "lab_staff"
)

// ParseRole accepts the wire names of the three roles.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleLabStaff:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actor is the authenticated principal of a request.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsPatient() bool  { return a.Role == RolePatient }
func (a Actor) IsDoctor() bool   { return a.Role == RoleDoctor }
func (a Actor) IsLabStaff() bool { return a.Role == RoleLabStaff }

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor stored by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}
