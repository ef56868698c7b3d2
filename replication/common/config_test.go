package common

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/dFS/lib/crypt"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	ns, err := crypt.ParseNamespaces([]string{"docs:p1", "music:p2"})
	require.NoError(t, err)

	cfg := DefaultEngineConfig(t.TempDir(), ns)
	require.NoError(t, cfg.Validate())

	tc := cfg.TransportConfigWithKeys()
	require.Len(t, tc.Namespaces, 2)
	require.Len(t, tc.Ports(), 11)
	require.Equal(t, 7645, tc.Ports()[0])
	require.Equal(t, 7655, tc.Ports()[10])

	docs, ok := cfg.Namespace("docs")
	require.True(t, ok)
	require.Equal(t, crypt.Derive("p1"), docs.Key)
	_, ok = cfg.Namespace("unknown")
	require.False(t, ok)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	ns, _ := crypt.ParseNamespaces([]string{"docs:p1"})

	cfg := DefaultEngineConfig("", ns)
	require.Error(t, cfg.Validate())

	cfg = DefaultEngineConfig(t.TempDir(), nil)
	require.Error(t, cfg.Validate())

	cfg = DefaultEngineConfig(t.TempDir(), append(ns, ns[0]))
	require.ErrorIs(t, cfg.Validate(), crypt.ErrInvalidNamespace)

	cfg = DefaultEngineConfig(t.TempDir(), ns)
	cfg.Transport.PortEnd = cfg.Transport.PortStart - 1
	require.Error(t, cfg.Validate())
}

func TestConfigStringHidesPassphrases(t *testing.T) {
	ns, _ := crypt.ParseNamespaces([]string{"docs:very-secret"})
	cfg := DefaultEngineConfig("/tmp/dfs", ns)

	out := cfg.String()
	require.Contains(t, out, "NAMESPACES")
	require.Contains(t, out, "docs")
	require.Contains(t, out, "7645-7655")
	require.False(t, strings.Contains(out, "very-secret"))
}

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warn", "warning", "error"} {
		_, err := ParseLogLevel(lvl)
		require.NoError(t, err, lvl)
	}
	_, err := ParseLogLevel("loud")
	require.Error(t, err)
}
