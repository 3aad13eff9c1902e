package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// TokenService issues and verifies the access tokens that assert an
// authenticated staff identity. Verification is pure: it must accept any
// token previously produced by Issue under the same signing key, for the
// lifetime of that key.
type TokenService interface {
	Issue(email string) (string, error)
	Verify(token string) (string, error)
}

// IdentityGateway translates local operations into calls against the CRM,
// which is the authoritative store of staff identity and credentials.
type IdentityGateway interface {
	Exists(ctx context.Context, email string) (bool, error)
	VerifyCredentials(ctx context.Context, email, password string) (bool, error)
	Register(ctx context.Context, email, password string) error
}

// PortalAuthenticator is the alternate integration path: credentials are
// submitted to a per-project administrative portal and the session token is
// lifted from the portal's response cookie.
type PortalAuthenticator interface {
	AuthenticateViaPortal(ctx context.Context, project, email, password string) (string, error)
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERR] AUTH %s %v\n", msg, args)
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WRN] AUTH %s %v\n", msg, args)
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Printf("[INF] AUTH %s %v\n", msg, args)
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DBG] AUTH %s %v\n", msg, args)
}
