package crypt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveRepeatsShortPassphrase(t *testing.T) {
	key := Derive("p1")
	for i := 0; i < KeySize; i += 2 {
		require.Equal(t, byte('p'), key[i], "byte %d", i)
		require.Equal(t, byte('1'), key[i+1], "byte %d", i+1)
	}
}

func TestDeriveFoldsOverflow(t *testing.T) {
	// 33 bytes: the last byte folds back onto byte 0
	pass := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	key := Derive(pass)
	require.Equal(t, byte(0), key[0])
	for i := 1; i < KeySize; i++ {
		require.Equal(t, byte('a'), key[i])
	}

	// "abcde" doubles to 40 bytes, bytes 32..39 fold onto 0..7
	key = Derive("abcde")
	material := "abcdeabcdeabcdeabcdeabcdeabcdeabcdeabcde"
	for i := 0; i < KeySize; i++ {
		want := material[i]
		if i+KeySize < len(material) {
			want ^= material[i+KeySize]
		}
		require.Equal(t, want, key[i], "byte %d", i)
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	require.Equal(t, Derive("secret"), Derive("secret"))
	require.NotEqual(t, Derive("secret"), Derive("Secret"))
	require.Equal(t, SecretKey{}, Derive(""))
}

func TestParseNamespace(t *testing.T) {
	ns, err := ParseNamespace("docs:p1")
	require.NoError(t, err)
	require.Equal(t, "docs", ns.Name)
	require.Equal(t, "p1", ns.Passphrase)
	require.Equal(t, Derive("p1"), ns.Key)

	// split happens at the first colon
	ns, err = ParseNamespace("docs:a:b")
	require.NoError(t, err)
	require.Equal(t, "docs", ns.Name)
	require.Equal(t, "a:b", ns.Passphrase)

	// empty passphrase is allowed
	ns, err = ParseNamespace("open:")
	require.NoError(t, err)
	require.Equal(t, "", ns.Passphrase)

	for _, bad := range []string{"docs", ":p1", "a/b:p1", "..:x", ""} {
		_, err := ParseNamespace(bad)
		require.Error(t, err, bad)
		require.True(t, errors.Is(err, ErrInvalidNamespace), bad)
	}
}

func TestParseNamespacesRejectsDuplicates(t *testing.T) {
	list, err := ParseNamespaces([]string{"docs:p1", " music:p2 "})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "music", list[1].Name)

	_, err = ParseNamespaces([]string{"docs:p1", "docs:p2"})
	require.ErrorIs(t, err, ErrInvalidNamespace)
}
