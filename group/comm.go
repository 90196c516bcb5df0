// Package group is the module's concrete stand-in for spec.md's "external
// collaborator": a group communicator providing rank, size, broadcast,
// gather, and barrier (spec.md GLOSSARY). Grounded on
// chaitanyaphalak-go-mcast's Transport interface (Broadcast/Unicast/Listen/Close)
// for the shape of a small collective-messaging surface, and on the
// "one rank accepts, the rest only connect" bootstrap pattern spec.md itself
// describes for the producer side (§4.1).
package group

// Comm is the collective-messaging primitive every Producer/Consumer peer is
// built on top of. It intentionally exposes nothing beyond what spec.md's
// bootstrap (§4.1) needs: rank/size queries, one gather, one broadcast, one
// barrier.
type Comm interface {
	Rank() int
	Size() int

	// Gather collects every rank's data into a Size()-length slice ordered
	// by rank (spec.md §4.1 producer step 3: "Rank-0 gathers all ... pairs
	// via the group communicator"). Rank 0 always receives the slice;
	// LocalComm returns it on every rank, TCPComm returns nil on the others.
	Gather(data []byte) ([][]byte, error)

	// Broadcast distributes root's data to every rank, root included
	// (spec.md §4.1 consumer step 2: "Rank-0 broadcasts P, the IP list, and
	// the port list to the other consumer ranks").
	Broadcast(root int, data []byte) ([]byte, error)

	// Barrier blocks the calling rank until every rank has called Barrier.
	Barrier() error

	// Close releases any resources (TCP control connections); safe to call
	// once per Comm.
	Close() error
}
