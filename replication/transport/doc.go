// Package transport defines the abstraction for the broadcast transport that
// carries replication packets between peers. It provides a common contract
// that all transport implementations must fulfill, enabling the store engine
// to run over the network or over an in-process hub.
//
// The package focuses on:
//   - Defining a clear interface for a best-effort, one-to-all transport
//   - Scoping every message to the namespace whose key sealed it
//
// Key Components:
//
//   - ITransport: sends a payload to every peer of a namespace and receives
//     authenticated payloads from them.
//
//   - Datagram: one authenticated payload together with the namespace that
//     authenticated it.
//
// Delivery Guarantees:
//
//	None. Datagrams may be lost, duplicated or reordered. A Broadcast is also
//	received by the sending transport itself, as with a real broadcast socket.
package transport
