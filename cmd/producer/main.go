// Command producer is the example producer binary: declares a small scalar
// schema, advances a handful of frames, and exits. It replaces the
// teacher's demo image server — the pixel decode/windowing/graphics-output
// portion of that demo is explicitly out of scope (spec.md Non-goals).
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tmarrinan/hpcstream-go/cmn"
	"github.com/tmarrinan/hpcstream-go/cmn/nlog"
	"github.com/tmarrinan/hpcstream-go/group"
	"github.com/tmarrinan/hpcstream-go/producer"
	"github.com/tmarrinan/hpcstream-go/schema"
	"github.com/tmarrinan/hpcstream-go/stats"
	"github.com/tmarrinan/hpcstream-go/wire"
)

var (
	iface      string
	portMin    uint
	portMax    uint
	ranks      int
	frames     int
	behavior   string
	configPath string
)

func init() {
	flag.StringVar(&iface, "iface", "eth0", "network interface to advertise")
	flag.UintVar(&portMin, "port-min", 20000, "lower bound of the listener port range")
	flag.UintVar(&portMax, "port-max", 20100, "upper bound of the listener port range")
	flag.IntVar(&ranks, "ranks", 1, "number of producer ranks (single-process demo via group.LocalComm)")
	flag.IntVar(&frames, "frames", 10, "number of frames to advance before exiting")
	flag.StringVar(&behavior, "behavior", "wait-for-all", "wait-for-all or drop-frames")
	flag.StringVar(&configPath, "config", "", "optional JSON config file overriding the flags above")
}

func main() {
	flag.Parse()
	nlog.SetDebug(false)

	var streamBehavior cmn.StreamBehavior
	switch behavior {
	case "wait-for-all":
		streamBehavior = cmn.WaitForAll
	case "drop-frames":
		streamBehavior = cmn.DropFrames
	default:
		nlog.Errorf("producer: unknown -behavior %q (want wait-for-all or drop-frames)", behavior)
		os.Exit(1)
	}

	baseCfg := cmn.DefaultConfig()
	baseCfg.Iface = iface
	baseCfg.PortMin = uint16(portMin)
	baseCfg.PortMax = uint16(portMax)
	baseCfg.Behavior = streamBehavior
	if configPath != "" {
		loaded, err := cmn.LoadConfigJSON(configPath, baseCfg)
		if err != nil {
			nlog.Errorf("producer: -config %s: %v", configPath, err)
			os.Exit(1)
		}
		baseCfg = loaded
	}
	streamBehavior = baseCfg.Behavior

	comms := group.NewLocalGroup(ranks)
	reg := stats.NewRegistry(prometheus.NewRegistry())

	// Construction runs a collective Gather, so every rank must be built
	// concurrently or rank 0 waits forever for the others.
	peers := make([]*producer.Peer, ranks)
	errs := make([]error, ranks)
	var wg sync.WaitGroup
	for r := 0; r < ranks; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			peers[r], errs[r] = producer.NewWithConfig(baseCfg, comms[r], cmn.NlogLogger{}, reg)
		}(r)
	}
	wg.Wait()
	for r, p := range peers {
		if err := errs[r]; err != nil {
			nlog.Errorf("producer rank %d: %v", r, err)
			os.Exit(1)
		}
		if err := p.DefineVar("step", schema.Uint32, "", "", ""); err != nil {
			nlog.Errorf("producer rank %d: define_var: %v", r, err)
			os.Exit(1)
		}
		if r == 0 {
			ip := p.LocalIP()
			nlog.Infof("producer: master rank listening at %d.%d.%d.%d:%d (pass to consumer -master-host/-master-port)", ip[0], ip[1], ip[2], ip[3], p.LocalPort())
		}
	}

	for r, p := range peers {
		if err := p.VarDefinitionsComplete(streamBehavior, baseCfg.InitialWaitCount); err != nil {
			nlog.Errorf("producer rank %d: var_definitions_complete: %v", r, err)
			os.Exit(1)
		}
	}

	for step := 0; step < frames; step++ {
		var buf [4]byte
		wire.NetworkOrder.PutUint32(buf[:], uint32(step))
		for r, p := range peers {
			if err := p.SetValue("step", buf[:]); err != nil {
				nlog.Warningf("producer rank %d: set_value: %v", r, err)
			}
			if err := p.Write(); err != nil {
				nlog.Warningf("producer rank %d: write: %v", r, err)
			}
		}
		for r, p := range peers {
			if err := p.AdvanceTimeStep(); err != nil {
				nlog.Warningf("producer rank %d: advance_time_step: %v", r, err)
			}
		}
		time.Sleep(16 * time.Millisecond)
	}

	fmt.Println("producer: done")
}
