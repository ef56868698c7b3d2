// Package fstore implements store.IStore as an encrypted, replicated file
// store. Each configured namespace is a directory below the store root that
// holds one ciphertext file per logical file plus a metadata file.
//
// Storage Layout:
//
//	A file of logical length n is kept as a block aligned plaintext buffer of
//	PaddedLen(n) bytes. Its ciphertext is split in two: the first n bytes are
//	the backing file, the trailing PaddedLen(n)-n bytes (the residual, less
//	than one block) are stored in the file's metadata record. The backing
//	file therefore always has the logical length of the file.
//
// Caching:
//
//	Decrypted buffers are cached per path. Writes only touch the cache and
//	mark the entry dirty; a periodic task flushes entries that have not been
//	written for FlushAfter and evicts entries that have not been read for
//	EvictAfter. Every flush replicates the new content.
//
// Replication:
//
//	Every change is broadcast to all peers of the namespace as wire packets,
//	stamped with the record timestamp minus one second. Inbound packets are
//	merged with last-writer-wins: a packet is dropped when the local record is
//	strictly newer, so the chunks of one update (which share a timestamp) all
//	apply while a peer's own echoes are ignored. On start every namespace is
//	announced with an Online packet, and peers answer with their full state.
//
// Thread Safety:
//
//	One mutex guards the metadata tables and the cache. Disk I/O of a single
//	file happens under the lock, network sends never do: packets are encoded
//	under the lock and broadcast after it is released.
package fstore
