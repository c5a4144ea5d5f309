package ports

import (
	"context"
	"net/http"
)

// HealthChecker is used to probe dependencies.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Notifier delivers short messages (OTP codes, visit confirmations) to a
// customer phone. Delivery mechanics are outside the ledger's concern.
type Notifier interface {
	Send(ctx context.Context, to, message string) error
}

// SessionStore carries the customer card token between requests. The token
// is an identity key, not a security boundary.
type SessionStore interface {
	Set(w http.ResponseWriter, token string)
	Token(r *http.Request) string
	Clear(w http.ResponseWriter)
}
