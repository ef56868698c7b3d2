// Package base implements the stream transport shared by the tcp and unix
// transports of the dFS remote access API. The protocol specific parts
// (listening, dialing, socket options) are injected as connectors.
//
// The package focuses on:
//   - Protocol-agnostic client and server transport implementations
//   - A small frame format with request IDs for response correlation
//   - Connection pooling and buffer reuse
//   - Retries and reconnection on the client side
//
// Frame Format:
//
//	8 bytes request ID (big endian) | 4 bytes length (big endian) | payload
//
// Key Components:
//
//   - IClientConnector/IServerConnector: protocol-specific operations that
//     allow extending the base transport with different network protocols.
//
//   - clientTransport: manages multiple connections with round-robin load
//     balancing. A broken connection fails its pending requests and is
//     redialed in the background; the request is retried on the next
//     connection with exponential backoff.
//
//   - serverTransport: accepts connections and processes the requests of
//     each connection with a bounded number of workers. Responses may leave
//     in a different order than the requests arrived. Close stops the
//     listener and waits for running requests.
//
// Thread Safety:
//
//	All public methods are thread-safe. The server creates a dedicated
//	goroutine per connection and serializes response writes per connection.
package base
