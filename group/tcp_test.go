package group

import (
	"net"
	"sync"
	"testing"
	"time"
)

// freeLoopbackAddr asks the OS for an unused port, then immediately releases
// it — the standard "ask, close, reuse" trick for handing a fixed address to
// NewTCPRoot, which (unlike xport.PickPort) takes an address string rather
// than scanning a range itself.
func freeLoopbackAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("freeLoopbackAddr: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// newTCPTestGroup spins up a real loopback TCP star group: rank 0 via
// NewTCPRoot, ranks 1..size-1 via DialTCPFollower. Exercises the actual
// socket path group.TCPComm wraps xport with, as opposed to LocalComm's
// in-memory rendezvous.
func newTCPTestGroup(t *testing.T, size int) []*TCPComm {
	t.Helper()
	addr := freeLoopbackAddr(t)

	rootCh := make(chan *TCPComm, 1)
	rootErrCh := make(chan error, 1)
	go func() {
		root, err := NewTCPRoot(addr, size)
		if err != nil {
			rootErrCh <- err
			return
		}
		rootCh <- root
	}()

	comms := make([]*TCPComm, size)
	var wg sync.WaitGroup
	errs := make([]error, size)
	for r := 1; r < size; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			var c *TCPComm
			var err error
			// NewTCPRoot's listener may not have bound yet; a couple of
			// retries covers the startup race without flaking the test.
			for attempt := 0; attempt < 20; attempt++ {
				c, err = DialTCPFollower(addr, r, size)
				if err == nil {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			comms[r] = c
			errs[r] = err
		}()
	}
	wg.Wait()
	for r := 1; r < size; r++ {
		if errs[r] != nil {
			t.Fatalf("rank %d DialTCPFollower: %v", r, errs[r])
		}
	}

	select {
	case root := <-rootCh:
		comms[0] = root
	case err := <-rootErrCh:
		t.Fatalf("root rendezvous: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for root rendezvous to complete")
	}
	return comms
}

func TestTCPCommGatherAtRoot(t *testing.T) {
	const size = 3
	comms := newTCPTestGroup(t, size)
	defer func() {
		for _, c := range comms {
			c.Close()
		}
	}()

	var wg sync.WaitGroup
	var rootOut [][]byte
	wg.Add(size)
	go func() {
		defer wg.Done()
		out, err := comms[0].Gather([]byte{0})
		if err != nil {
			t.Errorf("root Gather: %v", err)
			return
		}
		rootOut = out
	}()
	for r := 1; r < size; r++ {
		r := r
		go func() {
			defer wg.Done()
			if _, err := comms[r].Gather([]byte{byte(r)}); err != nil {
				t.Errorf("rank %d Gather: %v", r, err)
			}
		}()
	}
	wg.Wait()

	if len(rootOut) != size {
		t.Fatalf("root gathered %d entries, want %d", len(rootOut), size)
	}
	for r := 0; r < size; r++ {
		if len(rootOut[r]) != 1 || rootOut[r][0] != byte(r) {
			t.Fatalf("gathered[%d] = %v, want [%d]", r, rootOut[r], r)
		}
	}
}

func TestTCPCommBroadcastFromRoot(t *testing.T) {
	const size = 3
	comms := newTCPTestGroup(t, size)
	defer func() {
		for _, c := range comms {
			c.Close()
		}
	}()

	var wg sync.WaitGroup
	results := make([][]byte, size)
	wg.Add(size)
	for r := 0; r < size; r++ {
		r := r
		go func() {
			defer wg.Done()
			out, err := comms[r].Broadcast(0, []byte("hpcstream"))
			if err != nil {
				t.Errorf("rank %d Broadcast: %v", r, err)
				return
			}
			results[r] = out
		}()
	}
	wg.Wait()
	for r := 0; r < size; r++ {
		if string(results[r]) != "hpcstream" {
			t.Fatalf("rank %d got %q, want hpcstream", r, results[r])
		}
	}
}

func TestTCPCommRejectsNonZeroRoot(t *testing.T) {
	const size = 2
	comms := newTCPTestGroup(t, size)
	defer func() {
		for _, c := range comms {
			c.Close()
		}
	}()
	if _, err := comms[1].Broadcast(1, nil); err == nil {
		t.Fatal("expected an error broadcasting from a non-zero root (star topology)")
	}
}
