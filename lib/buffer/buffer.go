// Package buffer contains the byte accounting helpers shared by the store and
// the transport. Everything handed to the cipher has to be block aligned, while
// logical file contents and packet payloads have arbitrary lengths; this
// package converts between the two views.
package buffer

// BlockSize is the alignment every encrypted buffer must satisfy
const BlockSize = 16

// PaddedLen returns n rounded up to the next multiple of BlockSize
func PaddedLen(n int) int {
	return (n + BlockSize - 1) / BlockSize * BlockSize
}

// Residual returns the number of padding bytes needed to align n, always in
// the range [0, BlockSize)
func Residual(n int) int {
	return PaddedLen(n) - n
}

// IsAligned reports whether n is a multiple of BlockSize
func IsAligned(n int) bool {
	return n%BlockSize == 0
}

// Pad returns a copy of b zero padded to PaddedLen(len(b))
func Pad(b []byte) []byte {
	out := make([]byte, PaddedLen(len(b)))
	copy(out, b)
	return out
}

// Truncate returns b cut to n bytes. If n is larger than b, b is returned
// unchanged. Truncate(Pad(b), len(b)) restores b.
func Truncate(b []byte, n int) []byte {
	if n < 0 {
		n = 0
	}
	if n >= len(b) {
		return b
	}
	return b[:n]
}

// Resize returns b with length n. Growing zero fills the new bytes and reuses
// the backing array when it has enough capacity.
func Resize(b []byte, n int) []byte {
	if n <= len(b) {
		return b[:n]
	}
	if n <= cap(b) {
		old := len(b)
		b = b[:n]
		clear(b[old:])
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Span is one contiguous slice [Offset, Offset+Length) of a buffer
type Span struct {
	Offset int
	Length int
}

// Chunks splits a buffer of total bytes into spans of at most size bytes.
// An empty buffer yields exactly one empty span so that its existence can
// still be announced.
func Chunks(total, size int) []Span {
	if size <= 0 {
		panic("buffer: chunk size must be positive")
	}
	if total <= 0 {
		return []Span{{Offset: 0, Length: 0}}
	}

	spans := make([]Span, 0, (total+size-1)/size)
	for off := 0; off < total; off += size {
		spans = append(spans, Span{Offset: off, Length: min(size, total-off)})
	}
	return spans
}
