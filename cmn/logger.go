package cmn

import "github.com/tmarrinan/hpcstream-go/cmn/nlog"

// Logger is the injectable logging surface used by producer.Peer and
// consumer.Peer, so tests can swap in a silent implementation without
// touching the package-level nlog default.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NlogLogger forwards to the package-level cmn/nlog default logger.
type NlogLogger struct{}

func (NlogLogger) Debugf(format string, args ...any)   { nlog.Debugf(format, args...) }
func (NlogLogger) Infof(format string, args ...any)    { nlog.Infof(format, args...) }
func (NlogLogger) Warningf(format string, args ...any) { nlog.Warningf(format, args...) }
func (NlogLogger) Errorf(format string, args ...any)   { nlog.Errorf(format, args...) }

// DiscardLogger drops everything; used by tests that don't want log noise.
type DiscardLogger struct{}

func (DiscardLogger) Debugf(string, ...any)   {}
func (DiscardLogger) Infof(string, ...any)    {}
func (DiscardLogger) Warningf(string, ...any) {}
func (DiscardLogger) Errorf(string, ...any)   {}

var _ Logger = NlogLogger{}
var _ Logger = DiscardLogger{}
