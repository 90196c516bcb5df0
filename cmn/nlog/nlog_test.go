package nlog

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestInfofWritesTaggedLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Infof("listening on %s:%d", "127.0.0.1", 20000)
	out := buf.String()
	if !strings.Contains(out, "[INFO]") {
		t.Errorf("output missing [INFO] tag: %q", out)
	}
	if !strings.Contains(out, "listening on 127.0.0.1:20000") {
		t.Errorf("output missing formatted message: %q", out)
	}
}

func TestDebugfSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetDebug(false)

	Debugf("this must not appear")
	if buf.Len() != 0 {
		t.Errorf("Debugf wrote output while debug logging is off: %q", buf.String())
	}

	SetDebug(true)
	defer SetDebug(false)
	Debugf("this must appear")
	if !strings.Contains(buf.String(), "this must appear") {
		t.Errorf("Debugf did not write output once debug logging was enabled: %q", buf.String())
	}
}
