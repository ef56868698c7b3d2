package base

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dFS/replication/common"
	"github.com/ValentinKolb/dFS/replication/transport"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/time/rate"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IConnector defines the interface for network specific socket creation
type IConnector interface {
	// Bind opens a socket on the first free port of the configured range
	Bind(config common.TransportConfig) (IConn, error)

	// GetName returns the name of the connector type (e.g., "udp", "mem")
	GetName() string
}

// IConn is a bound broadcast socket
type IConn interface {
	// ReadFrom blocks until a datagram arrives and copies it into buf. It
	// returns net.ErrClosed after Close.
	ReadFrom(buf []byte) (n int, from string, err error)
	// WriteTo sends b to the given port on every peer
	WriteTo(b []byte, port int) error
	// LocalPort returns the bound port
	LocalPort() int
	// Close closes the socket
	Close() error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// broadcastTransport implements the core transport functionality
type broadcastTransport struct {
	connector IConnector
	config    common.TransportConfig
	conn      IConn
	keys      []key
	ports     []int
	limiter   *rate.Limiter
	buf       []byte
	now       func() time.Time

	closeOnce sync.Once
	closed    atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for udp, mem)
// -----------------------------------------------------------

// NewBaseTransport creates a new transport on top of connector
func NewBaseTransport(connector IConnector) transport.ITransport {
	return &broadcastTransport{
		connector: connector,
		now:       time.Now,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.ITransport)
// --------------------------------------------------------------------------

func (t *broadcastTransport) Listen(config common.TransportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid transport config: %w", err)
	}
	if t.conn != nil {
		return errors.New("transport is already listening")
	}

	t.config = config
	t.keys = newKeys(config.Namespaces)
	t.ports = config.Ports()
	t.buf = make([]byte, config.ReadBufferSize)
	if config.SendRatePerSecond > 0 {
		burst := int(math.Max(1, math.Ceil(config.SendRatePerSecond)))
		t.limiter = rate.NewLimiter(rate.Limit(config.SendRatePerSecond), burst)
	}

	conn, err := t.connector.Bind(config)
	if err != nil {
		return fmt.Errorf("failed to bind %s socket: %w", t.connector.GetName(), err)
	}
	t.conn = conn

	Logger.Infof("Listening for %s broadcasts on port %d (range %d-%d, %d namespaces)",
		t.connector.GetName(), conn.LocalPort(), config.PortStart, config.PortEnd, len(t.keys))
	return nil
}

func (t *broadcastTransport) Broadcast(namespace string, payload []byte) {
	if t.conn == nil || t.closed.Load() {
		Logger.Warningf("Dropping broadcast for %s: transport is not listening", namespace)
		sendErrorsTotal.Inc()
		return
	}

	k, ok := t.key(namespace)
	if !ok {
		Logger.Errorf("Dropping broadcast: no key for namespace %s", namespace)
		sendErrorsTotal.Inc()
		return
	}

	envelope := seal(k.cipher, t.now(), payload)

	for _, port := range t.ports {
		if t.limiter != nil {
			// never cancelled, only fails if the burst is smaller than one token
			_ = t.limiter.Wait(context.Background())
		}
		if err := t.conn.WriteTo(envelope, port); err != nil {
			if t.closed.Load() {
				return
			}
			Logger.Warningf("Failed to send %d bytes to port %d: %v", len(envelope), port, err)
			sendErrorsTotal.Inc()
			continue
		}
		sentTotal.Inc()
	}
}

func (t *broadcastTransport) Recv() (transport.Datagram, error) {
	if t.conn == nil {
		return transport.Datagram{}, errors.New("transport is not listening")
	}

	for {
		n, from, err := t.conn.ReadFrom(t.buf)
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return transport.Datagram{}, transport.ErrClosed
			}
			Logger.Warningf("Failed to read datagram: %v", err)
			continue
		}

		namespace, payload, err := open(t.keys, t.now(), t.config.MaxClockSkew, t.buf[:n])
		if err != nil {
			Logger.Debugf("Dropping datagram of %d bytes from %s: %v", n, from, err)
			droppedTotal(dropReason(err)).Inc()
			continue
		}

		receivedTotal.Inc()
		return transport.Datagram{Namespace: namespace, Payload: payload, From: from}, nil
	}
}

func (t *broadcastTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		if t.conn != nil {
			err = t.conn.Close()
		}
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// key returns the key of a namespace
func (t *broadcastTransport) key(namespace string) (key, bool) {
	for _, k := range t.keys {
		if k.namespace == namespace {
			return k, true
		}
	}
	return key{}, false
}
