package validation

import (
	"fmt"
	"net/mail"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FieldError describes the first rule a field failed
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e *FieldError) Error() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("%s é obrigatório", e.Field)
	case "email":
		return fmt.Sprintf("%s inválido", e.Field)
	case "min":
		return fmt.Sprintf("%s deve ter no mínimo %s caracteres", e.Field, e.Param)
	case "max":
		return fmt.Sprintf("%s deve ter no máximo %s caracteres", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s inválido (%s)", e.Field, e.Rule)
	}
}

// Validator validates structs using `validate` tags.
// Supported rules: required, email, min=N, max=N (string length in runes).
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a struct and returns a *FieldError for the first failure
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")
		if tag == "" {
			continue
		}

		if err := v.validateField(val.Field(i), fieldName(fieldType), tag); err != nil {
			return err
		}
	}

	return nil
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, name, tag string) error {
	for _, rule := range strings.Split(tag, ",") {
		parts := strings.SplitN(rule, "=", 2)
		ruleName := parts[0]
		param := ""
		if len(parts) == 2 {
			param = parts[1]
		}

		switch ruleName {
		case "required":
			if field.IsZero() || (field.Kind() == reflect.String && strings.TrimSpace(field.String()) == "") {
				return &FieldError{Field: name, Rule: ruleName}
			}

		case "email":
			if field.Kind() == reflect.String && field.String() != "" && !IsEmail(field.String()) {
				return &FieldError{Field: name, Rule: ruleName}
			}

		case "min", "max":
			n, err := strconv.Atoi(param)
			if err != nil {
				return fmt.Errorf("%s: bad %s parameter %q", name, ruleName, param)
			}
			if field.Kind() != reflect.String || field.String() == "" {
				continue
			}
			length := utf8.RuneCountInString(field.String())
			if (ruleName == "min" && length < n) || (ruleName == "max" && length > n) {
				return &FieldError{Field: name, Rule: ruleName, Param: param}
			}
		}
	}

	return nil
}

// MinLength checks a runtime-configured minimum length
func MinLength(field, value string, n int) error {
	if utf8.RuneCountInString(value) < n {
		return &FieldError{Field: field, Rule: "min", Param: strconv.Itoa(n)}
	}
	return nil
}

// IsEmail reports whether s is a bare address such as "ana@example.com"
func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// fieldName prefers the json tag so messages match request bodies
func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
