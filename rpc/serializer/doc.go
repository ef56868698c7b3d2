// Package serializer converts the messages of the dFS remote access API to
// bytes and back. All implementations satisfy IRPCSerializer and can be used
// interchangeably, client and server must just agree on one.
//
// Key Components:
//
//   - binarySerializerImpl: Custom format that encodes only the present
//     fields behind a 16 bit flag header. Smallest and fastest, and the only
//     one that keeps nil and empty byte slices apart.
//
//   - jsonSerializerImpl: Human readable, useful for debugging with curl
//     against the http transport. File contents are base64 encoded.
//
//   - gobSerializerImpl: Go's gob format. Carries the type description in
//     every message and is therefore the slowest of the three.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(*common.NewReadRequest("/docs/a.txt", 4096, 0))
//	// ... send data ...
//	var resp common.Message
//	err = s.Deserialize(received, &resp)
package serializer
