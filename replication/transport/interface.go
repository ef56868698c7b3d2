package transport

import (
	"errors"

	"github.com/ValentinKolb/dFS/replication/common"
)

var (
	// ErrClosed is returned by Recv after the transport was closed
	ErrClosed = errors.New("transport closed")
)

// Datagram is one authenticated payload
type Datagram struct {
	// Namespace is the namespace whose key opened the envelope
	Namespace string
	// Payload is the decrypted payload without padding
	Payload []byte
	// From is the address of the sender
	From string
}

// ITransport is the interface for the replication transport layer
type ITransport interface {
	// Listen binds the transport to the first free port of the configured
	// range. It fails only if no port is available.
	Listen(config common.TransportConfig) error
	// Broadcast seals payload with the key of namespace and sends it to every
	// port of the range. Failures are logged, never returned.
	Broadcast(namespace string, payload []byte)
	// Recv blocks until a valid datagram arrives. Invalid datagrams are logged
	// and skipped. Recv must only be called from one goroutine and returns
	// ErrClosed once the transport is closed.
	Recv() (Datagram, error)
	// Close closes the transport and unblocks Recv
	Close() error
}
