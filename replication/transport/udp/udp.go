package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"github.com/ValentinKolb/dFS/replication/common"
	"github.com/ValentinKolb/dFS/replication/transport"
	"github.com/ValentinKolb/dFS/replication/transport/base"
	"golang.org/x/sys/unix"
)

// connector implements the base.IConnector interface for UDP sockets
type connector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IConnector)
// --------------------------------------------------------------------------

func (c *connector) GetName() string {
	return "udp"
}

func (c *connector) Bind(config common.TransportConfig) (base.IConn, error) {
	dst, err := net.ResolveIPAddr("ip4", config.BroadcastAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve broadcast address %s: %w", config.BroadcastAddr, err)
	}

	lc := net.ListenConfig{Control: enableBroadcast}

	var errs []error
	for _, port := range config.Ports() {
		pc, err := lc.ListenPacket(context.Background(), "udp4", ":"+strconv.Itoa(port))
		if err != nil {
			base.Logger.Debugf("Port %d is not available: %v", port, err)
			errs = append(errs, err)
			continue
		}
		if config.ReadBufferSize > 0 {
			if err := pc.(*net.UDPConn).SetReadBuffer(config.ReadBufferSize * 4); err != nil {
				base.Logger.Warningf("Failed to set socket read buffer: %v", err)
			}
		}
		return &conn{pc: pc.(*net.UDPConn), port: port, dst: dst.IP}, nil
	}

	return nil, fmt.Errorf("no free port in range %d-%d: %w", config.PortStart, config.PortEnd, errors.Join(errs...))
}

// enableBroadcast sets SO_BROADCAST on the raw socket before it is bound
func enableBroadcast(_, _ string, rc syscall.RawConn) error {
	var opErr error
	err := rc.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}

// --------------------------------------------------------------------------
// Socket (implements base.IConn)
// --------------------------------------------------------------------------

type conn struct {
	pc   *net.UDPConn
	port int
	dst  net.IP
}

func (c *conn) ReadFrom(buf []byte) (int, string, error) {
	n, addr, err := c.pc.ReadFromUDP(buf)
	if err != nil {
		return 0, "", err
	}
	return n, addr.String(), nil
}

func (c *conn) WriteTo(b []byte, port int) error {
	_, err := c.pc.WriteToUDP(b, &net.UDPAddr{IP: c.dst, Port: port})
	return err
}

func (c *conn) LocalPort() int {
	return c.port
}

func (c *conn) Close() error {
	return c.pc.Close()
}

// --------------------------------------------------------------------------
// Transport Factory Method
// --------------------------------------------------------------------------

// NewUDPTransport creates a new UDP broadcast transport
func NewUDPTransport() transport.ITransport {
	return base.NewBaseTransport(&connector{})
}
