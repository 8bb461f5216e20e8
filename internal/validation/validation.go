// Package validation checks inbound auth payloads against named schemas
// before any business logic runs. Every violation is reported, not just the
// first one.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Schema string

const (
	SchemaRegistration Schema = "registration"
	SchemaLogin        Schema = "login"
)

var (
	ErrUnknownSchema   = errors.New("unknown validation schema")
	ErrPayloadMismatch = errors.New("payload does not match schema")
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// Registration is the body of POST /auth/register.
type Registration struct {
	FirstName    string `json:"firstName" validate:"required,min=2,max=50"`
	LastName     string `json:"lastName" validate:"required,min=2,max=50"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,phone"`
	Password     string `json:"password" validate:"required,min=6"`
	ReferralCode string `json:"referralCode" validate:"omitempty,alphanum,min=3,max=10"`
}

func (r *Registration) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.ReferralCode = strings.TrimSpace(r.ReferralCode)
}

// Login is the body of POST /auth/login.
type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) normalize() {
	l.Email = strings.TrimSpace(l.Email)
}

// normalizer trims a decoded payload in place. Passwords are never touched.
type normalizer interface {
	normalize()
}

// FieldError is one violation: the offending field path and a readable message.
type FieldError struct {
	Message string   `json:"message"`
	Path    []string `json:"path"`
}

// Errors is the ordered list of violations for one payload.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

type Validator struct {
	validate *validator.Validate
	schemas  map[Schema]reflect.Type
	fields   map[Schema]map[string]struct{}
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	// Registration never fails: the tag and pattern are both static.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	schemas := map[Schema]reflect.Type{
		SchemaRegistration: reflect.TypeOf(Registration{}),
		SchemaLogin:        reflect.TypeOf(Login{}),
	}
	fields := make(map[Schema]map[string]struct{}, len(schemas))
	for name, typ := range schemas {
		fields[name] = jsonKeys(typ)
	}

	return &Validator{
		validate: v,
		schemas:  schemas,
		fields:   fields,
	}
}

func jsonKeys(typ reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	return keys
}

// Validate checks payload against the named schema. It returns nil or an
// Errors value listing every violation. Payload must be the schema's struct
// or a pointer to it.
func (v *Validator) Validate(schema Schema, payload any) error {
	want, ok := v.schemas[schema]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}
	got := reflect.TypeOf(payload)
	if got != nil && got.Kind() == reflect.Pointer {
		got = got.Elem()
	}
	if got != want {
		return fmt.Errorf("%w: %s expects %s", ErrPayloadMismatch, schema, want.Name())
	}

	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Message: message(fe),
			Path:    []string{fe.Field()},
		})
	}
	return out
}

// Decode unmarshals a JSON body into dst, trims its string fields and
// validates it against schema. The body must be an object holding only the
// schema's keys. A type mismatch on one field is reported alongside the
// violations of the other fields; a body that is not JSON at all is reported
// on its own. An empty body is treated as an empty object.
func (v *Validator) Decode(schema Schema, body []byte, dst any) error {
	known, ok := v.fields[schema]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}

	var (
		typed     Errors
		typeField string
		unknown   Errors
	)
	if body = bytes.TrimSpace(body); len(body) > 0 {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(body, &keys); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return notAnObject()
			}
			return InvalidBody()
		}
		if keys == nil {
			return notAnObject()
		}
		unknown = unknownKeys(keys, known)

		if err := json.Unmarshal(body, dst); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) || typeErr.Field == "" {
				return InvalidBody()
			}
			typeField = typeErr.Field
			typed = Errors{{
				Message: fmt.Sprintf("%q must be a %s", typeErr.Field, typeErr.Type.String()),
				Path:    strings.Split(typeErr.Field, "."),
			}}
		}
	}

	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}

	err := v.Validate(schema, dst)
	var verrs Errors
	if err != nil && !errors.As(err, &verrs) {
		return err
	}

	out := typed
	for _, fe := range verrs {
		if typeField != "" && strings.Join(fe.Path, ".") == typeField {
			continue
		}
		out = append(out, fe)
	}
	out = append(out, unknown...)
	if len(out) == 0 {
		return nil
	}
	return out
}

func unknownKeys(keys map[string]json.RawMessage, known map[string]struct{}) Errors {
	var names []string
	for k := range keys {
		if _, ok := known[k]; !ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	out := make(Errors, 0, len(names))
	for _, name := range names {
		out = append(out, FieldError{
			Message: fmt.Sprintf("%q is not allowed", name),
			Path:    []string{name},
		})
	}
	return out
}

// InvalidBody is the error reported for a body that cannot be read as JSON.
func InvalidBody() Errors {
	return Errors{{Message: "Body is invalid JSON", Path: []string{}}}
}

func notAnObject() Errors {
	return Errors{{Message: `"value" must be of type object`, Path: []string{}}}
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "alphanum":
		return fmt.Sprintf("%q must only contain alpha-numeric characters", field)
	case "phone":
		return "Phone number must be between 10 and 15 digits."
	default:
		return fmt.Sprintf("%q failed the %s rule", field, fe.Tag())
	}
}
