// Package wire defines the replication packets exchanged between peers and
// their fixed-width binary encoding.
//
// A packet always starts with a Header:
//
//	kind  int32      Online, Modify or Delete
//	time  int32      logical timestamp (unix seconds) of the change
//	path  [512]byte  NUL terminated target path (namespace name for Online)
//
// A Modify packet continues with a Chunk descriptor and the chunk bytes:
//
//	file_size  int64  logical length of the file
//	total_size int64  block aligned length (file_size + residual)
//	offset     int64  position of the chunk in the aligned buffer
//	size       int64  number of bytes that follow
//
// All integers are big endian. The codec is independent of the host memory
// layout so both the persisted and the transmitted form stay portable.
//
// The package only (de)serializes and validates the shape of packets. It never
// interprets timestamps or paths; that is the job of the store engine.
package wire
