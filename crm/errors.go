package crm

import (
	"errors"
	"fmt"
	"strings"
)

// GatewayError captures a normalized CRM failure: the envelope reported a
// non-success status, the transport failed, or the response could not be
// decoded. HTTP handlers treat any GatewayError as an upstream outage.
type GatewayError struct {
	Operation    string
	Status       int
	Upstream     string
	ErrorMessage string
	Body         string
	Err          error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return "crm gateway error"
	}

	scope := "crm"
	if e.Operation != "" {
		scope = fmt.Sprintf("crm %s", e.Operation)
	}

	if e.Upstream != "" {
		return fmt.Sprintf("%s failed: upstream status %s", scope, e.Upstream)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s failed: http %d", scope, e.Status)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Detail returns the most specific upstream failure description available:
// the structured errorMessage field, else the raw response payload, else the
// stringified error.
func (e *GatewayError) Detail() string {
	if e == nil {
		return ""
	}
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Error()
}

// Metadata returns structured detail suitable for logs and rich errors.
func (e *GatewayError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Upstream != "" {
		meta["upstream_status"] = e.Upstream
	}
	if e.ErrorMessage != "" {
		meta["error_message"] = e.ErrorMessage
	}
	if e.Body != "" {
		meta["raw"] = e.Body
	}

	return meta
}

// PortalValidationError is returned when the administrative portal rejects
// the submitted credentials with validation messages.
type PortalValidationError struct {
	Project  string
	Messages []string
}

func (e *PortalValidationError) Error() string {
	if e == nil {
		return "portal validation error"
	}
	return fmt.Sprintf("portal %s validation failed: %s", e.Project, strings.Join(e.Messages, "; "))
}

// PortalProtocolError is returned when the portal answered without a session
// cookie to extract a token from.
type PortalProtocolError struct {
	Project string
	Status  int
}

func (e *PortalProtocolError) Error() string {
	if e == nil {
		return "portal protocol error"
	}
	return fmt.Sprintf("portal %s response carried no session cookie (http %d)", e.Project, e.Status)
}

// IsGatewayError reports whether err is (or wraps) a GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
