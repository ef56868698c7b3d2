package crypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCipherRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var key SecretKey
		copy(key[:], rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "key"))
		blocks := rapid.IntRange(0, 64).Draw(t, "blocks")
		plain := rapid.SliceOfN(rapid.Byte(), blocks*BlockSize, blocks*BlockSize).Draw(t, "plain")

		c := NewCipher(key)
		enc := make([]byte, len(plain))
		c.Encrypt(enc, plain)
		if len(enc) != len(plain) {
			t.Fatalf("ciphertext length %d != plaintext length %d", len(enc), len(plain))
		}

		dec := make([]byte, len(enc))
		c.Decrypt(dec, enc)
		if !bytes.Equal(dec, plain) {
			t.Fatalf("round trip mismatch")
		}
	})
}

func TestCipherIsDeterministic(t *testing.T) {
	c := NewCipher(Derive("p1"))
	plain := bytes.Repeat([]byte{0xAB}, 4*BlockSize)

	a := make([]byte, len(plain))
	b := make([]byte, len(plain))
	c.Encrypt(a, plain)
	NewCipher(Derive("p1")).Encrypt(b, plain)
	require.Equal(t, a, b)

	// different key, different ciphertext
	other := make([]byte, len(plain))
	NewCipher(Derive("p2")).Encrypt(other, plain)
	require.NotEqual(t, a, other)

	// identical plaintext blocks do not produce identical ciphertext blocks
	require.NotEqual(t, a[:BlockSize], a[BlockSize:2*BlockSize])
}

func TestCipherInPlace(t *testing.T) {
	c := NewCipher(Derive("p1"))
	plain := []byte("0123456789abcdef0123456789abcdef")
	buf := append([]byte(nil), plain...)

	c.Encrypt(buf, buf)
	require.NotEqual(t, plain, buf)
	c.Decrypt(buf, buf)
	require.Equal(t, plain, buf)
}

func TestCipherRejectsUnalignedInput(t *testing.T) {
	c := NewCipher(Derive("p1"))
	require.Panics(t, func() { c.Encrypt(make([]byte, 15), make([]byte, 15)) })
	require.Panics(t, func() { c.Decrypt(make([]byte, 16), make([]byte, 32)) })
	require.NotPanics(t, func() { c.Encrypt(nil, nil) })
}
