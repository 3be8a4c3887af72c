package events

import (
	"context"
	"time"
)

// Kind of auth change.
type Kind string

const (
	SignedIn  Kind = "signed_in"
	SignedOut Kind = "signed_out"
)

// Event announces that the provider session of a browser client changed.
type Event struct {
	ClientID   string    `json:"client_id"`
	Kind       Kind      `json:"kind"`
	IdentityID string    `json:"identity_id,omitempty"`
	At         time.Time `json:"at"`
}

// Bus fans auth-change events out to subscribers of a client id. Handlers of a
// single subscription run one at a time, in publish order.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, clientID string, fn func(Event)) (unsubscribe func(), err error)
}
