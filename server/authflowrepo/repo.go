package authflowrepo

import (
	"errors"
	"time"
)

var ErrStateNotFound = errors.New("auth flow state not found")

// AuthFlowState is what the provider login redirect needs to remember until the callback.
type AuthFlowState struct {
	Provider     string
	CodeVerifier string
	Nonce        string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	// Take returns the state and removes it, so each state is usable once.
	Take(state string) (*AuthFlowState, error)
	// Purge drops states created before the cutoff and returns how many were removed.
	Purge(before time.Time) int
}
