package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/mindbox-quickstart/staff-auth/crm"
)

// DefaultCookieName is the session cookie slot holding the access token
// across page loads.
const DefaultCookieName = "token"

// RegisterAuthRoutes mounts the auth API on the given router group.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post("/auth", controller.LoginPost)
	app.Post("/reg", controller.RegistrationPost)
	app.Get("/checkToken", controller.CheckToken)

	return controller
}

// AuthController sequences IdentityGateway and TokenService calls behind the
// /api/user routes. It holds no per-request state; any number of requests
// may execute concurrently. It is also the single place where internal
// failure kinds become transport status codes: gateway failures answer 503,
// rejected credentials and unknown users answer 403.
type AuthController struct {
	Debug          bool
	Logger         Logger
	Gateway        IdentityGateway
	Tokens         TokenService
	Activity       ActivitySink
	CookieName     string
	PasswordLength int
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:         defLogger{},
		CookieName:     DefaultCookieName,
		PasswordLength: DefaultPasswordLength,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Gateway == nil {
		panic("Missing IdentityGateway in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	c.Activity = normalizeActivitySink(c.Activity)

	return c
}

// LoginPost verifies the submitted credentials against the CRM and answers
// with a freshly issued access token in the response body. No token is ever
// issued on a failure path.
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(Identity)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return c.Status(fiber.StatusBadRequest).SendString("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Debug("login validate payload", "error", err)
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(fiber.Map{"email": payload.Email}))
		fmt.Println("=========================")
	}

	ok, err := a.Gateway.VerifyCredentials(c.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("login verify credentials", "error", err)
		a.record(c, ActivityEventLoginFailure, payload.Email, map[string]any{"error": err.Error()})
		return c.Status(fiber.StatusServiceUnavailable).SendString(upstreamDetail(err))
	}

	if !ok {
		a.record(c, ActivityEventLoginFailure, payload.Email, map[string]any{"reason": TextCodeInvalidCredentials})
		return c.Status(fiber.StatusForbidden).SendString(MsgInvalidCredentials)
	}

	token, err := a.Tokens.Issue(payload.Email)
	if err != nil {
		a.Logger.Error("login issue token", "error", err)
		a.record(c, ActivityEventLoginFailure, payload.Email, map[string]any{"error": err.Error()})
		return c.Status(fiber.StatusServiceUnavailable).SendString(upstreamDetail(err))
	}

	a.record(c, ActivityEventLoginSuccess, payload.Email, nil)

	return c.SendString(token)
}

// RegistrationRequest is the registration payload. Only the email matters:
// the password the CRM receives is generated server-side per attempt.
type RegistrationRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r RegistrationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

// RegistrationPost enrolls an existing CRM staff member. Register is only
// ever invoked after the existence lookup resolved positively.
func (a *AuthController) RegistrationPost(c *fiber.Ctx) error {
	payload := new(RegistrationRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return c.Status(fiber.StatusBadRequest).SendString("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Debug("register validate payload", "error", err)
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	exists, err := a.Gateway.Exists(c.Context(), payload.Email)
	if err != nil {
		a.Logger.Error("register existence lookup", "error", err)
		a.record(c, ActivityEventRegisterFailure, payload.Email, map[string]any{"error": err.Error()})
		return c.Status(fiber.StatusServiceUnavailable).SendString(upstreamDetail(err))
	}

	if !exists {
		a.record(c, ActivityEventRegisterFailure, payload.Email, map[string]any{"reason": TextCodeUserNotFound})
		return c.Status(fiber.StatusForbidden).SendString(MsgUserNotFound)
	}

	password, err := GeneratePassword(a.PasswordLength)
	if err != nil {
		a.Logger.Error("register generate password", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).SendString(upstreamDetail(err))
	}

	if err := a.Gateway.Register(c.Context(), payload.Email, password); err != nil {
		a.Logger.Error("register upstream call", "error", err)
		a.record(c, ActivityEventRegisterFailure, payload.Email, map[string]any{"error": err.Error()})
		return c.Status(fiber.StatusServiceUnavailable).SendString(upstreamDetail(err))
	}

	a.record(c, ActivityEventRegisterSuccess, payload.Email, nil)

	return c.SendStatus(fiber.StatusOK)
}

// CheckToken verifies the token carried in the session cookie. Failures are
// silent: the UI treats the absence of a valid session as logged out, not as
// an error banner.
func (a *AuthController) CheckToken(c *fiber.Ctx) error {
	token := c.Cookies(a.CookieName)

	if _, err := a.Tokens.Verify(token); err != nil {
		a.Logger.Debug("token check failed", "error", err)
		return c.SendStatus(fiber.StatusForbidden)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (a *AuthController) record(c *fiber.Ctx, eventType ActivityEventType, email string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Email:      email,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := a.Activity.Record(c.Context(), event); err != nil {
		a.Logger.Warn("activity sink record error", "error", err)
	}
}

// upstreamDetail extracts the failure description surfaced to callers:
// structured errorMessage first, then the raw upstream payload, then the
// stringified error.
func upstreamDetail(err error) string {
	var gatewayErr *crm.GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Detail()
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Message
	}

	return err.Error()
}
