package cmn

import (
	"errors"
	"testing"
)

func TestBootstrapErrorUnwraps(t *testing.T) {
	wrapped := errors.New("connection refused")
	err := NewBootstrapError("port-select", wrapped)
	if !errors.Is(err, wrapped) {
		t.Error("BootstrapError should unwrap to the original cause")
	}
}

func TestIsHandshakeError(t *testing.T) {
	err := NewHandshakeError("remote_ranks_total mismatch: got %d want %d", 3, 4)
	if !IsHandshakeError(err) {
		t.Error("IsHandshakeError should recognize a *HandshakeError")
	}
	if IsHandshakeError(errors.New("plain error")) {
		t.Error("IsHandshakeError should not misclassify a plain error")
	}
}

func TestIsSchemaError(t *testing.T) {
	err := NewSchemaError("producer %d: %v", 2, errors.New("dangling dim name"))
	if !IsSchemaError(err) {
		t.Error("IsSchemaError should recognize a *SchemaError")
	}
	if IsSchemaError(errors.New("plain error")) {
		t.Error("IsSchemaError should not misclassify a plain error")
	}
}

func TestFrameDeadlineErrorMessage(t *testing.T) {
	err := &FrameDeadlineError{Waiting: 2, Total: 5}
	want := "frame deadline exceeded: 2/5 connections had not released"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
