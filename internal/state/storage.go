// Package state keeps admin wizard progress as an explicit finite-state machine.
package state

import "context"

// Storage persists one UserState per admin.
type Storage interface {
	// GetState returns ErrStateNotFound when nothing is stored for userID.
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state *UserState) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}
