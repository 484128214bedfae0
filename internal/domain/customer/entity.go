// internal/domain/customer/entity.go
package customer

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Info holds the delivery and contact details entered once per session
type Info struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}

// FieldErrors maps a field name to a user-facing message
type FieldErrors map[string]string

// ValidationError is returned when submitted details are incomplete
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid customer info: " + strings.Join(keys, ", ")
}

// AsValidationError unwraps a *ValidationError from err
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

var validate = validator.New()

var fieldMessages = map[string]map[string]string{
	"name":    {"required": "Informe seu nome"},
	"address": {"required": "Informe o endereço de entrega"},
	"phone":   {"required": "Informe um telefone para contato"},
	"email":   {"email": "E-mail inválido"},
}

// Normalize returns a copy with surrounding whitespace trimmed
func (i Info) Normalize() Info {
	return Info{
		Name:    strings.TrimSpace(i.Name),
		Address: strings.TrimSpace(i.Address),
		Phone:   strings.TrimSpace(i.Phone),
		Email:   strings.TrimSpace(i.Email),
	}
}

// Validate checks the required fields after trimming
func (i Info) Validate() error {
	err := validate.Struct(i.Normalize())
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := FieldErrors{}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		msg, ok := fieldMessages[field][fe.Tag()]
		if !ok {
			msg = "Campo inválido"
		}
		fields[field] = msg
	}
	return &ValidationError{Fields: fields}
}

// IsComplete reports whether name, address and phone are all filled in
func (i Info) IsComplete() bool {
	n := i.Normalize()
	return n.Name != "" && n.Address != "" && n.Phone != ""
}

// IsZero reports whether nothing has been entered yet
func (i Info) IsZero() bool {
	return i == Info{}
}
