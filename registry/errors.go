package registry

import "fmt"

// RegistrationError represents a failure to register an application entity
// type or one of its fields (spec.md §7's Registration error kind). It is
// fatal to controller initialization.
type RegistrationError struct {
	TypeName  string
	FieldName string // empty if the error is type-level, not field-level
	Reason    string
}

func (e *RegistrationError) Error() string {
	if e.FieldName != "" {
		return fmt.Sprintf("registry: %s.%s: %s", e.TypeName, e.FieldName, e.Reason)
	}
	return fmt.Sprintf("registry: %s: %s", e.TypeName, e.Reason)
}

func newTypeError(typeName, reason string) error {
	return &RegistrationError{TypeName: typeName, Reason: reason}
}

func newFieldError(typeName, fieldName, reason string) error {
	return &RegistrationError{TypeName: typeName, FieldName: fieldName, Reason: reason}
}
