package cmn

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors. ErrDimensionNotReady is a per-call runtime error returned
// by SetValue; ErrPortRangeExhausted and ErrUnknownInterface are bootstrap
// failures (returned wrapped in a BootstrapError by producer construction).
var (
	ErrDimensionNotReady  = errors.New("hpcstream: array variable has no resolved dimensions yet")
	ErrPortRangeExhausted = errors.New("hpcstream: no free port in configured range")
	ErrUnknownInterface   = errors.New("hpcstream: named network interface not found")
)

// BootstrapError wraps a fatal failure during Producer/Consumer construction
// (port binding, interface lookup, group-communicator setup, master connect).
// Grounded on aistore/cmn/cos.ErrNotFound: a small typed error carrying just
// enough context to let a caller distinguish the failure class.
type BootstrapError struct {
	Stage string // e.g. "port-select", "interface", "group-gather", "master-connect"
	Err   error
}

func NewBootstrapError(stage string, err error) *BootstrapError {
	return &BootstrapError{Stage: stage, Err: pkgerrors.Wrap(err, stage)}
}

func (e *BootstrapError) Error() string { return fmt.Sprintf("bootstrap failed at %s: %v", e.Stage, e.Err) }
func (e *BootstrapError) Unwrap() error { return e.Err }

// HandshakeError marks a connection the producer must terminate, or the
// consumer's master connection failing outright.
type HandshakeError struct {
	Reason string
}

func NewHandshakeError(reason string, args ...any) *HandshakeError {
	return &HandshakeError{Reason: fmt.Sprintf(reason, args...)}
}

func (e *HandshakeError) Error() string { return "handshake mismatch: " + e.Reason }

// SchemaError marks a fatal decode failure of the variable schema blob.
type SchemaError struct {
	Reason string
}

func NewSchemaError(reason string, args ...any) *SchemaError {
	return &SchemaError{Reason: fmt.Sprintf(reason, args...)}
}

func (e *SchemaError) Error() string { return "schema decode failed: " + e.Reason }

// FrameDeadlineError reports that Config.FrameDeadline elapsed before every
// Streaming connection delivered its release for the current frame
// (SPEC_FULL.md §4.3's additive per-frame deadline).
type FrameDeadlineError struct {
	Waiting int // connections that had not yet released
	Total   int
}

func (e *FrameDeadlineError) Error() string {
	return fmt.Sprintf("frame deadline exceeded: %d/%d connections had not released", e.Waiting, e.Total)
}

// IsHandshakeError / IsSchemaError let callers branch on error class without
// importing the concrete types directly.
func IsHandshakeError(err error) bool {
	var h *HandshakeError
	return errors.As(err, &h)
}

func IsSchemaError(err error) bool {
	var s *SchemaError
	return errors.As(err, &s)
}
