package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dFS/lib/crypt"
	"github.com/ValentinKolb/dFS/replication/common"
	rpccommon "github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport"
	"github.com/ValentinKolb/dFS/rpc/transport/http"
	"github.com/ValentinKolb/dFS/rpc/transport/tcp"
	"github.com/ValentinKolb/dFS/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the store and transport flags shared by every command
// that opens a store
func SetupStoreFlags(cmd *cobra.Command) {
	key := "root"
	cmd.PersistentFlags().String(key, "data", WrapString("Directory that holds one subdirectory per namespace"))

	key = "namespaces"
	cmd.PersistentFlags().String(key, "", WrapString("Comma-separated list of namespaces in the format 'name:passphrase' (e.g. 'docs:secret,music:other'). The passphrase is everything after the first colon"))

	key = "port-start"
	cmd.PersistentFlags().Int(key, common.DefaultPortStart, WrapString("First UDP port of the broadcast range. Every instance on a host binds the first free port of the range and sends to all of them"))

	key = "port-end"
	cmd.PersistentFlags().Int(key, common.DefaultPortEnd, WrapString("Last UDP port of the broadcast range (inclusive)"))

	key = "broadcast-addr"
	cmd.PersistentFlags().String(key, common.DefaultBroadcastAddr, WrapString("IPv4 broadcast address the packets are sent to (e.g. 192.168.1.255 for a subnet)"))

	key = "max-clock-skew"
	cmd.PersistentFlags().Duration(key, common.DefaultMaxClockSkew, WrapString("Largest accepted difference between the sender time of a packet and the local clock"))

	key = "send-rate"
	cmd.PersistentFlags().Float64(key, 0, WrapString("Maximum number of datagrams sent per second, 0 disables pacing"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, common.DefaultReadBufferSize/1024, WrapString("Size of the socket read buffer (in KB)"))

	key = "tick-interval"
	cmd.PersistentFlags().Duration(key, common.DefaultTickInterval, WrapString("How often the cache is checked for entries to flush or evict"))

	key = "flush-after"
	cmd.PersistentFlags().Duration(key, common.DefaultFlushAfter, WrapString("A dirty file is flushed and replicated once it was not written for this long"))

	key = "evict-after"
	cmd.PersistentFlags().Duration(key, common.DefaultEvictAfter, WrapString("A clean file is dropped from the cache once it was not read for this long"))

	key = "announce-interval"
	cmd.PersistentFlags().Duration(key, 0, WrapString("Repeat the online announcement in this interval, 0 announces only at start"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig loads the env files and maps DFS_<FLAG> environment variables
// onto the flags
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dfs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetEngineConfig builds the engine configuration from viper
func GetEngineConfig() (common.EngineConfig, error) {
	defs := viper.GetString("namespaces")
	if strings.TrimSpace(defs) == "" {
		return common.EngineConfig{}, fmt.Errorf("no namespaces configured (use --namespaces or DFS_NAMESPACES)")
	}
	namespaces, err := crypt.ParseNamespaces(strings.Split(defs, ","))
	if err != nil {
		return common.EngineConfig{}, err
	}

	config := common.DefaultEngineConfig(viper.GetString("root"), namespaces)
	config.TickInterval = viper.GetDuration("tick-interval")
	config.FlushAfter = viper.GetDuration("flush-after")
	config.EvictAfter = viper.GetDuration("evict-after")
	config.AnnounceInterval = viper.GetDuration("announce-interval")
	config.LogLevel = viper.GetString("log-level")
	config.MetricsEndpoint = viper.GetString("metrics-endpoint")

	config.Transport = common.TransportConfig{
		PortStart:         viper.GetInt("port-start"),
		PortEnd:           viper.GetInt("port-end"),
		BroadcastAddr:     viper.GetString("broadcast-addr"),
		MaxClockSkew:      viper.GetDuration("max-clock-skew"),
		SendRatePerSecond: viper.GetFloat64("send-rate"),
		ReadBufferSize:    viper.GetInt("read-buffer") * 1024,
	}

	if err := config.Validate(); err != nil {
		return common.EngineConfig{}, err
	}
	return config, nil
}

// --------------------------------------------------------------------------
// Remote access API
// --------------------------------------------------------------------------

// setupRPCFlags adds the flags shared by the api server and client
func setupRPCFlags(cmd *cobra.Command) {
	key := "transport"
	cmd.PersistentFlags().String(key, "unix", WrapString("Transport of the remote access API (unix, tcp, http)"))

	key = "serializer"
	cmd.PersistentFlags().String(key, "binary", WrapString("Serializer of the remote access API (binary, json, gob). Server and clients must use the same"))

	key = "timeout"
	cmd.PersistentFlags().Int64(key, rpccommon.DefaultTimeoutSecond, WrapString("The timeout of one request in seconds"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time for the transport (in seconds, only for tcp, negative keeps the system default)"))
}

// SetupRPCServerFlags adds the flags of the remote access API to the daemon
func SetupRPCServerFlags(cmd *cobra.Command) {
	setupRPCFlags(cmd)

	key := "transport-endpoint"
	cmd.PersistentFlags().String(key, "", WrapString("Address the remote access API listens on: a socket path for unix, host:port for tcp and http. Empty disables the API. The API serves decrypted contents, keep it local"))

	key = "transport-workers-per-conn"
	cmd.PersistentFlags().Int(key, rpccommon.DefaultWorkersPerConn, WrapString("Number of requests processed concurrently per connection (ignored for http)"))
}

// SetupRPCClientFlags adds the flags to reach a daemon through its remote
// access API
func SetupRPCClientFlags(cmd *cobra.Command) {
	setupRPCFlags(cmd)

	key := "transport-endpoints"
	cmd.PersistentFlags().String(key, "", WrapString("Address of a running daemon. If set, the command uses the daemon instead of opening the store itself. Multiple endpoints can be given as a comma-separated list"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint (ignored for http)"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, rpccommon.DefaultRetryCount, WrapString("How many times to retry the request"))
}

// GetServerConfig reads the api server configuration from viper. The
// endpoint is empty if the api is disabled.
func GetServerConfig() rpccommon.ServerConfig {
	config := rpccommon.DefaultServerConfig(viper.GetString("transport-endpoint"))
	config.TimeoutSecond = viper.GetInt64("timeout")
	config.LogLevel = viper.GetString("log-level")
	config.Transport.WorkersPerConn = viper.GetInt("transport-workers-per-conn")
	config.Transport.WriteBufferSize = viper.GetInt("transport-write-buffer") * 1024
	config.Transport.ReadBufferSize = viper.GetInt("transport-read-buffer") * 1024
	config.Transport.TCPNoDelay = viper.GetBool("transport-tcp-nodelay")
	config.Transport.TCPKeepAliveSec = viper.GetInt("transport-tcp-keepalive")
	config.Transport.TCPLingerSec = viper.GetInt("transport-tcp-linger")
	return config
}

// GetClientConfig reads the api client configuration from viper. It
// returns no endpoints if none are configured.
func GetClientConfig() rpccommon.ClientConfig {
	var endpoints []string
	for _, e := range strings.Split(viper.GetString("transport-endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	config := rpccommon.DefaultClientConfig(endpoints...)
	config.TimeoutSecond = viper.GetInt64("timeout")
	config.Transport.RetryCount = viper.GetInt("transport-retries")
	config.Transport.ConnectionsPerEndpoint = viper.GetInt("transport-conn-per-endpoint")
	return config
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetServerTransport creates the server transport based on configuration
func GetServerTransport() (transport.IRPCServerTransport, error) {
	bufferSize := max(viper.GetInt("transport-read-buffer")*1024, 64*1024)
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(bufferSize), nil
	case "unix":
		return unix.NewUnixServerTransport(bufferSize), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetClientTransport creates the client transport based on configuration
func GetClientTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}
