// Command consumer is the example consumer binary: connects to a running
// producer, reads a handful of frames of the "step" scalar, and exits. It
// replaces the teacher's demo image client — graphics output is explicitly
// out of scope (spec.md Non-goals).
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tmarrinan/hpcstream-go/cmn"
	"github.com/tmarrinan/hpcstream-go/cmn/nlog"
	"github.com/tmarrinan/hpcstream-go/consumer"
	"github.com/tmarrinan/hpcstream-go/group"
	"github.com/tmarrinan/hpcstream-go/stats"
)

var (
	masterHost string
	masterPort string
	ranks      int
	frames     int
)

func init() {
	flag.StringVar(&masterHost, "master-host", "127.0.0.1", "producer master rank's host")
	flag.StringVar(&masterPort, "master-port", "", "producer master rank's port")
	flag.IntVar(&ranks, "ranks", 1, "number of consumer ranks (single-process demo via group.LocalComm)")
	flag.IntVar(&frames, "frames", 10, "number of frames to read before exiting")
}

func main() {
	flag.Parse()
	nlog.SetDebug(false)
	if masterPort == "" {
		nlog.Errorf("consumer: -master-port is required")
		os.Exit(1)
	}
	if _, err := strconv.Atoi(masterPort); err != nil {
		nlog.Errorf("consumer: -master-port must be numeric: %v", err)
		os.Exit(1)
	}

	comms := group.NewLocalGroup(ranks)
	reg := stats.NewRegistry(prometheus.NewRegistry())

	// Construction runs a collective Broadcast, so every rank must be built
	// concurrently or rank 0 waits forever for the others.
	peers := make([]*consumer.Peer, ranks)
	errs := make([]error, ranks)
	var wg sync.WaitGroup
	for r := 0; r < ranks; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			peers[r], errs[r] = consumer.NewWithLogger(masterHost, masterPort, comms[r], cmn.NlogLogger{}, reg)
		}(r)
	}
	wg.Wait()
	for r, err := range errs {
		if err != nil {
			nlog.Errorf("consumer rank %d: %v", r, err)
			os.Exit(1)
		}
	}

	for step := 0; step < frames; step++ {
		for r, p := range peers {
			if err := p.Read(); err != nil {
				nlog.Warningf("consumer rank %d: read: %v", r, err)
				continue
			}
			if len(p.Connections) > 0 {
				if v, ok := p.Connections[0].Vars["step"]; ok && len(v.ValueBuf) == 4 {
					fmt.Printf("consumer rank %d: step bytes=% x (producer-native order)\n", r, v.ValueBuf)
				}
			}
			if err := p.ReleaseTimeStep(); err != nil {
				nlog.Warningf("consumer rank %d: release_time_step: %v", r, err)
			}
		}
	}

	fmt.Println("consumer: done")
}
