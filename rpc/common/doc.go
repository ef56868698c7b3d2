// Package common provides the data structures shared by the client and the
// server side of the dFS remote access API.
//
// The package focuses on:
//   - Message protocol definition for the remote store operations
//   - Configuration structures for client and server components
//   - Mapping between store errors and their wire representation
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a flat
//     structure whose used fields depend on the operation. Includes factory
//     methods for the request and response messages of every store.IStore
//     operation.
//
//   - MessageType: Enumeration of all supported operations, split into file
//     operations, path queries and control messages.
//
//   - ServerConfig / ClientConfig: endpoint, timeout, retry and socket
//     settings of the transports.
//
// Error Handling:
//
//	A failed operation sets Code and Err of the response. The client turns
//	them back into a *store.Error with the same return code, so callers can
//	use errors.Is with the store sentinel errors on both sides of the wire.
package common
