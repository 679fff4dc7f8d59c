package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListDoctors(ctx context.Context, exclude uuid.UUID) ([]*User, error)
}

type LabRepository interface {
	Create(ctx context.Context, l *Lab) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lab, error)
	List(ctx context.Context) ([]*Lab, error)
}

type TestTypeRepository interface {
	Create(ctx context.Context, tt *TestType) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestType, error)
	List(ctx context.Context) ([]*TestType, error)
}
