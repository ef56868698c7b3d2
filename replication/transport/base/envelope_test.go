package base

import (
	"bytes"
	"testing"
	"time"

	"github.com/ValentinKolb/dFS/lib/crypt"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testKeys(t *testing.T, defs ...string) []key {
	ns, err := crypt.ParseNamespaces(defs)
	require.NoError(t, err)
	return newKeys(ns)
}

func TestSealOpenRoundTrip(t *testing.T) {
	keys := testKeys(t, "docs:p1", "music:p2")
	now := time.Unix(1700000000, 0)

	rapid.Check(t, func(rt *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 0, 4096).Draw(rt, "payload")
		k := keys[rapid.IntRange(0, len(keys)-1).Draw(rt, "key")]

		env := seal(k.cipher, now, payload)
		if len(env) != 2*HeaderSize+(len(payload)+15)/16*16 {
			rt.Fatalf("unexpected envelope size %d for %d bytes", len(env), len(payload))
		}

		ns, got, err := open(keys, now, 30*time.Second, env)
		if err != nil {
			rt.Fatalf("open failed: %v", err)
		}
		if ns != k.namespace {
			rt.Fatalf("identified %s, want %s", ns, k.namespace)
		}
		if !bytes.Equal(got, payload) {
			rt.Fatalf("payload mismatch")
		}
	})
}

func TestOpenCopiesPayload(t *testing.T) {
	keys := testKeys(t, "docs:p1")
	now := time.Now()

	env := seal(keys[0].cipher, now, []byte("hello"))
	_, payload, err := open(keys, now, time.Second, env)
	require.NoError(t, err)

	// the read buffer is reused by the transport
	for i := range env {
		env[i] = 0
	}
	require.Equal(t, []byte("hello"), payload)
}

func TestOpenValidation(t *testing.T) {
	keys := testKeys(t, "docs:p1")
	other := testKeys(t, "docs:p2")
	now := time.Unix(1700000000, 0)
	skew := 30 * time.Second

	valid := seal(keys[0].cipher, now, []byte("payload"))
	mutate := func(f func(b []byte)) []byte {
		b := append([]byte(nil), valid...)
		f(b)
		return b
	}

	testCases := []struct {
		name   string
		data   []byte
		now    time.Time
		reason string
	}{
		{"Empty", nil, now, reasonSize},
		{"Header only", valid[:HeaderSize], now, reasonSize},
		{"Version", mutate(func(b []byte) { b[3] = 2 }), now, reasonVersion},
		{"Too old", valid, now.Add(31 * time.Second), reasonClock},
		{"From the future", valid, now.Add(-31 * time.Second), reasonClock},
		{"Truncated", valid[:len(valid)-16], now, reasonLength},
		{"Unaligned", valid[:len(valid)-1], now, reasonLength},
		{"Real larger than padded", mutate(func(b []byte) { b[11] = 17 }), now, reasonLength},
		{"Unknown key", seal(other[0].cipher, now, []byte("payload")), now, reasonKey},
		{"Tampered header", mutate(func(b []byte) { b[11] = 6 }), now, reasonKey},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := open(keys, tc.now, skew, tc.data)
			require.Error(t, err)
			require.Equal(t, tc.reason, dropReason(err))
		})
	}

	// the window is inclusive
	_, _, err := open(keys, now.Add(30*time.Second), skew, valid)
	require.NoError(t, err)
	_, _, err = open(keys, now.Add(-30*time.Second), skew, valid)
	require.NoError(t, err)
}

func TestOpenPicksFirstMatchingKey(t *testing.T) {
	keys := testKeys(t, "docs:p1", "music:p2", "alias:p2")
	now := time.Now()

	ns, _, err := open(keys, now, time.Second, seal(keys[2].cipher, now, nil))
	require.NoError(t, err)
	require.Equal(t, "music", ns)
}
