package common

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ValentinKolb/dFS/lib/crypt"
)

// --------------------------------------------------------------------------
// Transport configuration struct
// --------------------------------------------------------------------------

const (
	// DefaultPortStart is the first port of the broadcast port range
	DefaultPortStart = 7645
	// DefaultPortEnd is the last port of the broadcast port range (inclusive)
	DefaultPortEnd = 7655
	// DefaultBroadcastAddr is the limited broadcast address
	DefaultBroadcastAddr = "255.255.255.255"
	// DefaultMaxClockSkew is the accepted difference between the envelope time
	// and the local clock
	DefaultMaxClockSkew = 30 * time.Second
	// DefaultReadBufferSize is large enough for any UDP datagram
	DefaultReadBufferSize = 64 * 1024
)

// TransportConfig holds the settings of the broadcast transport
type TransportConfig struct {
	// PortStart and PortEnd define the inclusive port range. The transport
	// binds the first free port and sends every envelope to all of them.
	PortStart int
	PortEnd   int

	// BroadcastAddr is the destination address of every envelope
	BroadcastAddr string

	// MaxClockSkew is the accepted age (or future drift) of an envelope
	MaxClockSkew time.Duration

	// SendRatePerSecond limits outgoing datagrams, 0 means unlimited
	SendRatePerSecond float64

	// ReadBufferSize is the size of the receive buffer of one datagram
	ReadBufferSize int

	// Namespaces are the keys the transport seals and opens envelopes with.
	// The engine fills this from EngineConfig.Namespaces.
	Namespaces []crypt.Namespace
}

// DefaultTransportConfig returns the configuration used by all peers unless
// configured otherwise
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		PortStart:      DefaultPortStart,
		PortEnd:        DefaultPortEnd,
		BroadcastAddr:  DefaultBroadcastAddr,
		MaxClockSkew:   DefaultMaxClockSkew,
		ReadBufferSize: DefaultReadBufferSize,
	}
}

// Ports returns every port of the range in ascending order
func (c *TransportConfig) Ports() []int {
	ports := make([]int, 0, c.PortEnd-c.PortStart+1)
	for p := c.PortStart; p <= c.PortEnd; p++ {
		ports = append(ports, p)
	}
	return ports
}

// Validate checks the configuration for obvious mistakes
func (c *TransportConfig) Validate() error {
	if c.PortStart <= 0 || c.PortEnd > 65535 || c.PortStart > c.PortEnd {
		return fmt.Errorf("invalid port range %d-%d", c.PortStart, c.PortEnd)
	}
	if c.BroadcastAddr == "" {
		return errors.New("broadcast address must not be empty")
	}
	if c.MaxClockSkew <= 0 {
		return errors.New("max clock skew must be positive")
	}
	if c.SendRatePerSecond < 0 {
		return errors.New("send rate must not be negative")
	}
	if c.ReadBufferSize <= 0 {
		return errors.New("read buffer size must be positive")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *TransportConfig) String() string {
	var sb strings.Builder
	c.write(&sb)
	return sb.String()
}

func (c *TransportConfig) write(sb *strings.Builder) {
	addSection, addField := formatter(sb)

	addSection("Transport")
	addField("Port Range", fmt.Sprintf("%d-%d", c.PortStart, c.PortEnd))
	addField("Broadcast Address", c.BroadcastAddr)
	addField("Max Clock Skew", c.MaxClockSkew.String())
	if c.SendRatePerSecond > 0 {
		addField("Send Rate", fmt.Sprintf("%.0f packets/sec", c.SendRatePerSecond))
	} else {
		addField("Send Rate", "unlimited")
	}
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
}

// --------------------------------------------------------------------------
// Engine configuration struct
// --------------------------------------------------------------------------

const (
	DefaultTickInterval = time.Second
	DefaultFlushAfter   = 2 * time.Second
	DefaultEvictAfter   = 30 * time.Second
)

// EngineConfig holds all configuration parameters of a store engine
type EngineConfig struct {
	// RootDir contains one directory per namespace
	RootDir string

	// Namespaces are the configured namespaces, each with its own key
	Namespaces []crypt.Namespace

	// TickInterval is the period of the sync task
	TickInterval time.Duration
	// FlushAfter is how long a dirty cache entry may stay unwritten after its
	// last write
	FlushAfter time.Duration
	// EvictAfter is how long a clean cache entry may stay unread
	EvictAfter time.Duration
	// AnnounceInterval re-broadcasts the Online packets periodically, 0 means
	// announce only at start
	AnnounceInterval time.Duration

	// Transport settings
	Transport TransportConfig

	// HTTP endpoint for the prometheus metrics, empty disables it
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultEngineConfig returns a configuration with the default timings
func DefaultEngineConfig(rootDir string, namespaces []crypt.Namespace) EngineConfig {
	return EngineConfig{
		RootDir:      rootDir,
		Namespaces:   namespaces,
		TickInterval: DefaultTickInterval,
		FlushAfter:   DefaultFlushAfter,
		EvictAfter:   DefaultEvictAfter,
		Transport:    DefaultTransportConfig(),
		LogLevel:     "info",
	}
}

// Namespace returns the configured namespace with the given name
func (c *EngineConfig) Namespace(name string) (crypt.Namespace, bool) {
	for _, ns := range c.Namespaces {
		if ns.Name == name {
			return ns, true
		}
	}
	return crypt.Namespace{}, false
}

// TransportConfigWithKeys returns the transport settings with the engine
// namespaces filled in
func (c *EngineConfig) TransportConfigWithKeys() TransportConfig {
	tc := c.Transport
	tc.Namespaces = c.Namespaces
	return tc
}

// Validate checks the configuration for obvious mistakes
func (c *EngineConfig) Validate() error {
	if c.RootDir == "" {
		return errors.New("root directory must not be empty")
	}
	if len(c.Namespaces) == 0 {
		return errors.New("at least one namespace must be configured")
	}
	seen := make(map[string]struct{}, len(c.Namespaces))
	for _, ns := range c.Namespaces {
		if _, dup := seen[ns.Name]; dup {
			return fmt.Errorf("%w: duplicate namespace %q", crypt.ErrInvalidNamespace, ns.Name)
		}
		seen[ns.Name] = struct{}{}
	}
	if c.TickInterval <= 0 || c.FlushAfter < 0 || c.EvictAfter < 0 || c.AnnounceInterval < 0 {
		return errors.New("timings must not be negative and the tick interval must be positive")
	}
	return c.Transport.Validate()
}

// String returns a formatted string representation of the configuration.
// Passphrases are never printed.
func (c *EngineConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("Store")
	root, err := filepath.Abs(c.RootDir)
	if err != nil {
		root = c.RootDir
	}
	addField("Root Directory", root)
	addField("Metrics Endpoint", orNone(c.MetricsEndpoint))

	addSection("Namespaces")
	for i, ns := range c.Namespaces {
		addField(fmt.Sprintf("%d", i), ns.Name)
	}

	addSection("Sync Task")
	addField("Tick Interval", c.TickInterval.String())
	addField("Flush After", c.FlushAfter.String())
	addField("Evict After", c.EvictAfter.String())
	if c.AnnounceInterval > 0 {
		addField("Announce Interval", c.AnnounceInterval.String())
	} else {
		addField("Announce Interval", "only at start")
	}

	c.Transport.write(&sb)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

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

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
