package xport

import "net"

// Listener binds a TCP port and accepts incoming connections, pushing a
// Connect event (and then that connection's own Data/Close events) onto one
// shared Events channel — spec.md §4.1 producer step 4: "accepts incoming
// consumer connections."
type Listener struct {
	ln     net.Listener
	events chan Event
	done   chan struct{}
}

// Listen binds addr (a host:port string; PickPort calls it once per
// candidate port) and starts accepting.
func Listen(addr string, buffer int) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{ln: ln, events: make(chan Event, buffer), done: make(chan struct{})}
	go l.acceptLoop()
	return l, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Events is the producer peer's single combined event source: connects,
// per-connection data, and per-connection closes, all multiplexed through
// one channel so the peer's event loop never needs a dynamic select over a
// growing connection set (spec.md §5 "single-threaded cooperative").
func (l *Listener) Events() <-chan Event { return l.events }

func (l *Listener) Close() error {
	close(l.done)
	return l.ln.Close()
}

func (l *Listener) acceptLoop() {
	for {
		nc, err := l.ln.Accept()
		if err != nil {
			return
		}
		c := newConn(nc, l.events)
		l.events <- Event{Kind: EventConnect, Conn: c}
		go c.recvLoop()
	}
}
