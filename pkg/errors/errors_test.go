package errors

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestErrorText(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		err  *Error
		want string
	}{
		{New(ErrCodeInvalidInput, "bad position: %s", "x"), "INVALID_INPUT: bad position: x"},
		{Wrap(ErrCodeNetwork, cause, "move node %s", "n1"), "NETWORK_ERROR: move node n1: connection refused"},
		{Validation("category_id"), "VALIDATION_FAILED: invalid or missing fields: category_id"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("toggle: %w", Wrap(ErrCodeNetwork, cause, "toggle n1"))

	if !errors.Is(err, cause) {
		t.Error("cause not reachable through the chain")
	}
	if !Is(err, ErrCodeNetwork) || Is(err, ErrCodeTimeout) {
		t.Errorf("GetCode = %q", GetCode(err))
	}
	if got := UserMessage(err); got != "toggle n1" {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestForeignErrors(t *testing.T) {
	plain := errors.New("plain")
	if GetCode(plain) != "" || Is(plain, "") || Is(nil, "") {
		t.Error("foreign and nil errors carry no code")
	}
	if FieldsOf(plain) != nil || IsNotFound(plain) {
		t.Error("foreign errors carry no fields")
	}
	if UserMessage(plain) != "plain" {
		t.Errorf("UserMessage = %q", UserMessage(plain))
	}
}

func TestValidationFields(t *testing.T) {
	want := []string{"source_node_id", "target_node_id"}
	err := fmt.Errorf("create edge: %w", Validation(want...))

	if got := FieldsOf(err); !reflect.DeepEqual(got, want) {
		t.Errorf("FieldsOf = %v, want %v", got, want)
	}
	if !Is(err, ErrCodeValidation) {
		t.Errorf("code = %q", GetCode(err))
	}
}

func TestIsNotFound(t *testing.T) {
	for _, code := range []Code{ErrCodeNotFound, ErrCodeNodeNotFound, ErrCodeEdgeNotFound, ErrCodeCategoryNotFound} {
		if !IsNotFound(New(code, "gone")) {
			t.Errorf("IsNotFound(%s) = false", code)
		}
	}
	if IsNotFound(New(ErrCodeInFlight, "busy")) {
		t.Error("IN_FLIGHT is not a not-found code")
	}
}
