package mail

import (
	"context"
	"sync"

	"github.com/multimart/multimart/backend/go-services/pkg/logger"
)

// Sender delivers account emails.
type Sender interface {
	SendVerification(ctx context.Context, to, link string) error
}

// LogSender writes the verification link to the service log. Used in
// development and wherever no outbound mail relay is configured.
type LogSender struct{}

func (LogSender) SendVerification(ctx context.Context, to, link string) error {
	logger.Event().Str("to", to).Str("link", link).Msg("verification email")
	return nil
}

// Outbox records messages in memory; handy in tests.
type Outbox struct {
	mu    sync.Mutex
	Links map[string]string
}

func (o *Outbox) SendVerification(ctx context.Context, to, link string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Links == nil {
		o.Links = map[string]string{}
	}
	o.Links[to] = link
	return nil
}

// Link returns the last link sent to the address.
func (o *Outbox) Link(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Links[to]
}
