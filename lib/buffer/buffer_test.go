package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPaddedLen(t *testing.T) {
	cases := map[int]int{0: 0, 1: 16, 15: 16, 16: 16, 17: 32, 5000: 5008, 10000: 10000}
	for in, want := range cases {
		if got := PaddedLen(in); got != want {
			t.Errorf("PaddedLen(%d) = %d, want %d", in, got, want)
		}
		if got := Residual(in); got != want-in {
			t.Errorf("Residual(%d) = %d, want %d", in, got, want-in)
		}
	}
}

func TestPadTruncateRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := rapid.SliceOf(rapid.Byte()).Draw(t, "b")

		padded := Pad(b)
		if !IsAligned(len(padded)) {
			t.Fatalf("padded length %d not aligned", len(padded))
		}
		if len(padded)-len(b) >= BlockSize {
			t.Fatalf("padding of %d bytes is too large", len(padded)-len(b))
		}
		for _, c := range padded[len(b):] {
			if c != 0 {
				t.Fatalf("padding is not zero")
			}
		}
		if !bytes.Equal(Truncate(padded, len(b)), b) {
			t.Fatalf("truncate did not restore the input")
		}
	})
}

func TestResize(t *testing.T) {
	b := make([]byte, 4, 32)
	copy(b, "abcd")

	b = Resize(b, 2)
	require.Equal(t, []byte("ab"), b)

	// growing within capacity must not resurrect old bytes
	b = Resize(b, 4)
	require.Equal(t, []byte{'a', 'b', 0, 0}, b)

	b = Resize(b, 40)
	require.Len(t, b, 40)
	require.Equal(t, []byte("ab"), b[:2])
	require.Equal(t, make([]byte, 38), b[2:])
}

func TestChunks(t *testing.T) {
	require.Equal(t, []Span{{0, 0}}, Chunks(0, 1024))
	require.Equal(t, []Span{{0, 16}}, Chunks(16, 1024))
	require.Equal(t, []Span{{0, 1024}, {1024, 1}}, Chunks(1025, 1024))

	spans := Chunks(10016, 1024)
	require.Len(t, spans, 10)
	require.Equal(t, Span{Offset: 9216, Length: 800}, spans[9])

	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 1<<16).Draw(t, "total")
		size := rapid.IntRange(1, 4096).Draw(t, "size")

		next := 0
		for _, s := range Chunks(total, size) {
			if s.Offset != next || s.Length > size {
				t.Fatalf("bad span %+v (expected offset %d)", s, next)
			}
			next += s.Length
		}
		if next != total {
			t.Fatalf("spans cover %d bytes, want %d", next, total)
		}
	})
}
