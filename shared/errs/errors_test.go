package errs

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Details: []FieldError{
		{Field: "amount", Message: "Value must be greater than 0", Type: "gt"},
		{Field: "category", Message: "This field is required", Type: "required"},
	}}
	msg := err.Error()
	if !strings.Contains(msg, "amount: Value must be greater than 0") || !strings.Contains(msg, "category: This field is required") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestAsValidationThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create transaction: %w", Invalid("type", "oneof", "Value must be one of: income expense"))
	ve, ok := AsValidation(wrapped)
	if !ok {
		t.Fatal("expected wrapped validation error to be found")
	}
	if len(ve.Details) != 1 || ve.Details[0].Field != "type" {
		t.Errorf("unexpected details: %+v", ve.Details)
	}
	if _, ok := AsValidation(ErrNotFound); ok {
		t.Error("ErrNotFound must not be a validation error")
	}
}
