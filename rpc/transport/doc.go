// Package transport defines the interfaces for moving the requests of the
// dFS remote access API between a client and the daemon. The transports only
// deal with opaque byte slices; serialization happens one layer above.
//
// Key Components:
//
//   - IRPCClientTransport: client side, handles connection management and
//     request sending.
//
//   - IRPCServerTransport: server side, receives requests and hands them to
//     the registered ServerHandleFunc.
//
// Implementations live in the sub packages tcp, unix (both built on base)
// and http.
package transport
