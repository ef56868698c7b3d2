package mem

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/ValentinKolb/dFS/replication/common"
	"github.com/ValentinKolb/dFS/replication/transport"
	"github.com/ValentinKolb/dFS/replication/transport/base"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultInboxSize is the number of datagrams a bound port buffers
const DefaultInboxSize = 4096

// ErrNoFreePort is returned when every port of the range is bound
var ErrNoFreePort = errors.New("no free port in range")

// Hub is one in-process broadcast domain
type Hub struct {
	ports     *xsync.MapOf[int, *conn]
	inboxSize int
}

// NewHub creates an empty broadcast domain
func NewHub() *Hub {
	return NewHubWithInbox(DefaultInboxSize)
}

// NewHubWithInbox creates an empty broadcast domain whose ports buffer
// inboxSize datagrams
func NewHubWithInbox(inboxSize int) *Hub {
	return &Hub{
		ports:     xsync.NewMapOf[int, *conn](),
		inboxSize: inboxSize,
	}
}

// NewTransport creates a transport that is a peer of this hub
func (h *Hub) NewTransport() transport.ITransport {
	return base.NewBaseTransport(&connector{hub: h})
}

// Bound returns the number of bound ports
func (h *Hub) Bound() int {
	return h.ports.Size()
}

// connector implements the base.IConnector interface for the hub
type connector struct {
	hub *Hub
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IConnector)
// --------------------------------------------------------------------------

func (c *connector) GetName() string {
	return "mem"
}

func (c *connector) Bind(config common.TransportConfig) (base.IConn, error) {
	for _, port := range config.Ports() {
		candidate := &conn{
			hub:   c.hub,
			port:  port,
			inbox: make(chan []byte, c.hub.inboxSize),
			done:  make(chan struct{}),
		}
		if _, loaded := c.hub.ports.LoadOrStore(port, candidate); loaded {
			continue
		}
		return candidate, nil
	}
	return nil, fmt.Errorf("%w %d-%d", ErrNoFreePort, config.PortStart, config.PortEnd)
}

// --------------------------------------------------------------------------
// Port (implements base.IConn)
// --------------------------------------------------------------------------

type conn struct {
	hub   *Hub
	port  int
	inbox chan []byte
	done  chan struct{}
	once  sync.Once
}

func (c *conn) ReadFrom(buf []byte) (int, string, error) {
	select {
	case b := <-c.inbox:
		return copy(buf, b), "mem:" + strconv.Itoa(c.port), nil
	case <-c.done:
		return 0, "", net.ErrClosed
	}
}

func (c *conn) WriteTo(b []byte, port int) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}

	dst, ok := c.hub.ports.Load(port)
	if !ok {
		// nobody listens, like a broadcast into an empty port
		return nil
	}

	select {
	case dst.inbox <- append([]byte(nil), b...):
	case <-dst.done:
	default:
		base.Logger.Debugf("Inbox of port %d is full, dropping datagram", port)
	}
	return nil
}

func (c *conn) LocalPort() int {
	return c.port
}

func (c *conn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.hub.ports.Delete(c.port)
	})
	return nil
}
