// Package auth is the authentication and session-issuance core of the staff
// portal. Identity is owned by the external Mindbox CRM; this package only
// brokers it.
//
// Server side:
//   - TokenService issues and verifies the HS256 access tokens that assert
//     an authenticated staff email. Tokens are stateless: validity is a
//     function of the signature and (when configured) expiry alone.
//   - IdentityGateway is the contract for existence lookup, credential
//     verification, and registration against the CRM. The crm subpackage
//     holds the HTTP implementation.
//   - AuthController sequences gateway and token calls behind the
//     /api/user routes and is the single place that maps failure kinds to
//     transport status codes.
//
// Client side:
//   - SessionController owns the AuthState consumed by the UI: logged-in
//     flag, current token, and the last error per operation. It persists the
//     token in a cookie jar and re-validates it once at startup so a
//     returning user is silently re-authenticated.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter fed by the controller on
//     login and registration outcomes. Sink errors are logged, never
//     surfaced, so auditing cannot block authentication.
package auth
