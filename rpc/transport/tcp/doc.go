// Package tcp implements the TCP transport of the dFS remote access API on
// top of the base package. It only contributes the connectors: listening,
// dialing and the TCP socket options of ServerTransportConfig. Framing,
// connection pooling and request correlation are described in the base
// package.
//
// The default server buffer size is 512 KB, enough for most write requests
// to be read without allocating.
package tcp
