package consumer

import (
	"github.com/tmarrinan/hpcstream-go/schema"
	"github.com/tmarrinan/hpcstream-go/xport"
)

// Connection is spec.md §3's consumer-side Connection record: one TCP
// connection to a single producer peer, with its own clone of every
// variable's schema, because that producer peer owns a distinct partition
// and therefore distinct LSize/LOffset (spec.md §3).
type Connection struct {
	Conn         *xport.Conn
	ProducerRank int
	Vars         map[string]*schema.Variable

	// doneThisFrame is set once this connection's end-of-frame sentinel has
	// arrived; cleared at the start of the next Read().
	doneThisFrame bool
}
