package pim

// Driver abstracts a bank of PIM lanes. Each lane owns a private
// memory arena addressed by byte offsets; allocations are uniform, the
// same offset is valid on every lane. Implementations must be safe for
// serialized use through a single Manager; they need not be safe for
// concurrent calls.
type Driver interface {
	// Lanes returns the number of compute lanes.
	Lanes() int

	// Scatter writes one shard of 64-bit words per lane at the given
	// byte offset. len(shards) must equal Lanes().
	Scatter(shards [][]uint64, offset uint32) error

	// Gather reads words 64-bit words per lane from the given byte
	// offset into the provided shards.
	Gather(shards [][]uint64, words int, offset uint32) error

	// PushArgs broadcasts the argument block to every lane.
	PushArgs(args Args) error

	// Exec launches the kernel selected by the last pushed argument
	// block on every lane and blocks until completion.
	Exec() error
}
