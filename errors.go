package auth

import "github.com/goliatone/go-errors"

const (
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodeUserNotFound       = "auth_user_not_found"
	TextCodeTokenMalformed     = "auth_token_malformed"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeGatewayFailure     = "crm_gateway_failure"
)

// Fixed user-facing failure messages, verbatim from the portal UI copy.
const (
	MsgInvalidCredentials = "Неправильная почта или пароль"
	MsgUserNotFound       = "Такого пользователя не существует"
)

// ErrInvalidCredentials is returned when the CRM rejects the email/password pair.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeForbidden)

// ErrUserNotFound is returned when registration targets an unknown staff member.
var ErrUserNotFound = errors.New("user does not exist", errors.CategoryAuth).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeForbidden)

// ErrTokenMalformed is returned when a token fails signature or format checks.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when an otherwise valid token is past its expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrGatewayFailure is the base error for CRM calls that did not produce a
// usable answer: non-success envelope, transport failure, or bad framing.
var ErrGatewayFailure = errors.New("identity gateway failure", errors.CategoryOperation).
	WithTextCode(TextCodeGatewayFailure)
