package cmn

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StreamBehavior selects the flow-control discipline AdvanceTimeStep uses.
type StreamBehavior uint8

const (
	// WaitForAll blocks the producer's AdvanceTimeStep until every Streaming
	// connection has delivered a release byte for the current frame.
	WaitForAll StreamBehavior = iota
	// DropFrames drains pending releases non-blockingly; slow consumers miss
	// frames instead of holding the producer back.
	DropFrames
)

func (b StreamBehavior) String() string {
	if b == DropFrames {
		return "DropFrames"
	}
	return "WaitForAll"
}

// Config is the module's single configuration surface: no environment
// variables, no persisted state (spec.md §6). Grounded on aistore/cmn/rom.go's
// read-mostly global pattern (Rom/readMostly) — here a plain value instead of
// an atomic-swapped pointer, since peer configuration is set once at
// construction and never hot-reloaded (spec.md Non-goals: dynamic
// reconfiguration).
type Config struct {
	// Iface names the network interface a producer probes for its IPv4
	// address (spec.md §4.1 step 2).
	Iface string
	// PortMin/PortMax bound the producer's listener port selection range
	// (spec.md §4.1 step 1).
	PortMin, PortMax uint16
	// Behavior selects WaitForAll or DropFrames (spec.md §4.3).
	Behavior StreamBehavior
	// InitialWaitCount gates VarDefinitionsComplete until this many
	// consumer connections have reached Streaming (spec.md §4.1).
	InitialWaitCount int
	// FrameDeadline is an additive, opt-in (zero value disables it) overall
	// per-frame timeout for AdvanceTimeStep's wait-for-all drain — spec.md
	// §7 DESIGN NOTES: "Implementations SHOULD expose an overall per-frame
	// deadline as a configuration."
	FrameDeadline time.Duration
}

// DefaultConfig mirrors the example binaries' defaults (spec.md §9 decision
// 3: WaitForAll is the default stream behavior for correctness).
func DefaultConfig() Config {
	return Config{
		Iface:            "eth0",
		PortMin:          20000,
		PortMax:          20100,
		Behavior:         WaitForAll,
		InitialWaitCount: 1,
	}
}

// fileConfig is the on-disk shape LoadConfigJSON reads; kept separate from
// Config so the common zero-config path (DefaultConfig + flags, used by
// cmd/producer) never has to carry json struct tags.
type fileConfig struct {
	Iface            string `json:"iface"`
	PortMin          uint16 `json:"port_min"`
	PortMax          uint16 `json:"port_max"`
	Behavior         string `json:"behavior"` // "wait-for-all" or "drop-frames"
	InitialWaitCount int    `json:"initial_wait_count"`
	FrameDeadlineMs  int64  `json:"frame_deadline_ms"`
}

// LoadConfigJSON reads an optional JSON config file (spec.md has no
// persisted-state requirement; this is purely an ambient convenience layer,
// the same role jsoniter plays for aistore's cluster config file). Fields
// absent from the file keep base's value.
func LoadConfigJSON(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return base, err
	}
	out := base
	if fc.Iface != "" {
		out.Iface = fc.Iface
	}
	if fc.PortMin != 0 {
		out.PortMin = fc.PortMin
	}
	if fc.PortMax != 0 {
		out.PortMax = fc.PortMax
	}
	switch fc.Behavior {
	case "drop-frames":
		out.Behavior = DropFrames
	case "wait-for-all":
		out.Behavior = WaitForAll
	}
	if fc.InitialWaitCount != 0 {
		out.InitialWaitCount = fc.InitialWaitCount
	}
	if fc.FrameDeadlineMs != 0 {
		out.FrameDeadline = time.Duration(fc.FrameDeadlineMs) * time.Millisecond
	}
	return out, nil
}
