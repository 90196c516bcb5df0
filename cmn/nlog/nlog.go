// Package nlog is the module's default logger: leveled, timestamped, and
// safe to call from every peer's event loop without further setup.
/*
 * Adapted from aistore/cmn/nlog's buffered severity logger.
 */
package nlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type severity int

const (
	sevDebug severity = iota
	sevInfo
	sevWarn
	sevErr
)

var sevTag = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	debugOn bool
)

// SetOutput redirects the default logger; tests typically point this at
// io.Discard or a bytes.Buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// SetDebug toggles Debugf/Debugln emission.
func SetDebug(on bool) {
	mu.Lock()
	debugOn = on
	mu.Unlock()
}

func log(sev severity, format string, args ...any) {
	if sev == sevDebug {
		mu.Lock()
		on := debugOn
		mu.Unlock()
		if !on {
			return
		}
	}
	line := fmt.Sprintf(format, args...)
	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	mu.Lock()
	fmt.Fprintf(out, "%s [%s] %s\n", ts, sevTag[sev], line)
	mu.Unlock()
}

func Debugf(format string, args ...any) { log(sevDebug, format, args...) }
func Infof(format string, args ...any)  { log(sevInfo, format, args...) }
func Warningf(format string, args ...any) { log(sevWarn, format, args...) }
func Errorf(format string, args ...any) { log(sevErr, format, args...) }
