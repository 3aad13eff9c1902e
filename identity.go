package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Identity carries the credentials of a single authentication attempt.
// The password is transient: it exists for the request that needs it and is
// never persisted by this package. Email is the sole stable identifier.
type Identity struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (i Identity) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(
			&i.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&i.Password,
			validation.Required,
		),
	)
}
