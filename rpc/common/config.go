package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

const (
	// DefaultTimeoutSecond is the request timeout of clients and servers
	DefaultTimeoutSecond = 5
	// DefaultRetryCount is how often a client sends a request before it gives up
	DefaultRetryCount = 3
	// DefaultWorkersPerConn is the number of requests a server processes
	// concurrently per connection
	DefaultWorkersPerConn = 16
)

// ServerTransportConfig holds the socket settings of a server transport.
// The TCP options are ignored by the other transports.
type ServerTransportConfig struct {
	// Endpoint is a host:port for tcp and http, a socket path for unix
	Endpoint string

	// WorkersPerConn limits the concurrent requests of one connection
	WorkersPerConn int

	// TCP socket options
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // negative keeps the system default
	WriteBufferSize int
	ReadBufferSize  int
}

// ServerConfig holds all configuration parameters of the remote access API
type ServerConfig struct {
	// TimeoutSecond bounds writing one response, 0 disables it
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns the server configuration for endpoint
func DefaultServerConfig(endpoint string) ServerConfig {
	return ServerConfig{
		TimeoutSecond: DefaultTimeoutSecond,
		Transport: ServerTransportConfig{
			Endpoint:       endpoint,
			WorkersPerConn: DefaultWorkersPerConn,
			TCPNoDelay:     true,
			TCPLingerSec:   -1,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for obvious mistakes
func (c *ServerConfig) Validate() error {
	if c.Transport.Endpoint == "" {
		return errors.New("endpoint must not be empty")
	}
	if c.TimeoutSecond < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(max(c.Transport.WorkersPerConn, 1)))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the connection settings of a client transport
type ClientTransportConfig struct {
	// Endpoints are used round robin
	Endpoints []string

	RetryCount             int
	ConnectionsPerEndpoint int
}

// ClientConfig holds the configuration of a remote store client
type ClientConfig struct {
	// TimeoutSecond bounds one request, 0 disables it
	TimeoutSecond int64

	// Transport settings
	Transport ClientTransportConfig
}

// DefaultClientConfig returns the client configuration for the endpoints
func DefaultClientConfig(endpoints ...string) ClientConfig {
	return ClientConfig{
		TimeoutSecond: DefaultTimeoutSecond,
		Transport: ClientTransportConfig{
			Endpoints:              endpoints,
			RetryCount:             DefaultRetryCount,
			ConnectionsPerEndpoint: 1,
		},
	}
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// formatter returns the helper functions for consistent formatting
func formatter(sb *strings.Builder) (func(string), func(string, string)) {
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	return addSection, addField
}
