package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// testPackets creates a set of packets covering every kind
func testPackets() []Packet {
	content := bytes.Repeat([]byte{0xAB}, 2048)

	packets := []Packet{
		// Announcement
		NewOnline(1700000000, "docs"),

		// Tombstone
		NewDelete(1700000001, "/docs/a.txt"),

		// Empty file
		SplitModify(1700000002, "/docs/empty", nil, 0)[0],
	}

	// Multi chunk file with residual
	packets = append(packets, SplitModify(1700000003, "/docs/b.bin", content, 5)...)
	return packets
}

// TestPacketRoundTrip tests that packets can be encoded and decoded correctly
func TestPacketRoundTrip(t *testing.T) {
	for i, p := range testPackets() {
		data, err := p.Encode()
		if err != nil {
			t.Errorf("Failed to encode packet %d: %v", i, err)
			continue
		}
		if len(data) != p.Size() {
			t.Errorf("Packet %d: encoded %d bytes, Size() says %d", i, len(data), p.Size())
		}

		result, err := Decode(data)
		if err != nil {
			t.Errorf("Failed to decode packet %d: %v", i, err)
			continue
		}

		if result.Header != p.Header {
			t.Errorf("Packet %d: header mismatch: expected %+v, got %+v", i, p.Header, result.Header)
		}
		if (p.Chunk == nil) != (result.Chunk == nil) {
			t.Errorf("Packet %d: chunk nil/non-nil mismatch", i)
			continue
		}
		if p.Chunk != nil && *p.Chunk != *result.Chunk {
			t.Errorf("Packet %d: chunk mismatch: expected %+v, got %+v", i, *p.Chunk, *result.Chunk)
		}
		if !bytes.Equal(p.Data, result.Data) {
			t.Errorf("Packet %d: data mismatch", i)
		}
	}
}

// TestEncodedLayout pins the field offsets of the wire format
func TestEncodedLayout(t *testing.T) {
	p := SplitModify(7, "/docs/x", make([]byte, 16), 3)[0]
	data, err := p.Encode()
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	if len(data) != 520+32+16 {
		t.Fatalf("Expected 568 bytes, got %d", len(data))
	}
	if k := binary.BigEndian.Uint32(data[0:4]); k != 1 {
		t.Errorf("Kind at offset 0: expected 1, got %d", k)
	}
	if ts := binary.BigEndian.Uint32(data[4:8]); ts != 7 {
		t.Errorf("Time at offset 4: expected 7, got %d", ts)
	}
	if string(data[8:15]) != "/docs/x" || data[15] != 0 {
		t.Errorf("Path at offset 8 is not NUL terminated /docs/x")
	}
	want := []uint64{13, 16, 0, 16}
	for i, w := range want {
		off := 520 + i*8
		if got := binary.BigEndian.Uint64(data[off : off+8]); got != w {
			t.Errorf("Chunk field %d at offset %d: expected %d, got %d", i, off, w, got)
		}
	}
}

// TestSplitModify tests the chunking of file contents
func TestSplitModify(t *testing.T) {
	// 9999 logical bytes pad to 10000, which is 10 chunks of at most 1024 bytes
	content := make([]byte, 10000)
	for i := range content {
		content[i] = byte(i)
	}

	packets := SplitModify(1, "/docs/big", content, 1)
	if len(packets) != 10 {
		t.Fatalf("Expected 10 chunks, got %d", len(packets))
	}

	var rebuilt []byte
	for i, p := range packets {
		if p.Kind != KindModify || p.Chunk == nil {
			t.Fatalf("Packet %d is not a modify packet", i)
		}
		if p.Chunk.TotalSize != 10000 || p.Chunk.FileSize != 9999 || p.Chunk.Residual() != 1 {
			t.Errorf("Packet %d: unexpected sizes %+v", i, *p.Chunk)
		}
		if p.Chunk.Offset != int64(len(rebuilt)) {
			t.Errorf("Packet %d: expected offset %d, got %d", i, len(rebuilt), p.Chunk.Offset)
		}
		rebuilt = append(rebuilt, p.Data...)
	}
	if !bytes.Equal(rebuilt, content) {
		t.Error("Chunks do not reassemble the content")
	}
	if last := packets[9].Chunk.Size; last != 10000-9*1024 {
		t.Errorf("Last chunk should carry %d bytes, got %d", 10000-9*1024, last)
	}
}

// TestInvalidPackets tests how the decoder handles corrupt or invalid data
func TestInvalidPackets(t *testing.T) {
	valid, _ := (&Packet{
		Header: Header{Kind: KindModify, Time: 1, Path: "/docs/a"},
		Chunk:  &Chunk{FileSize: 10, TotalSize: 16, Offset: 0, Size: 4},
		Data:   []byte("abcd"),
	}).Encode()

	mutate := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return f(b)
	}
	putChunkField := func(b []byte, field int, v int64) []byte {
		binary.BigEndian.PutUint64(b[HeaderSize+field*8:], uint64(v))
		return b
	}

	testCases := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Short header", valid[:HeaderSize-1]},
		{"Unknown kind", mutate(func(b []byte) []byte { b[3] = 9; return b })},
		{"Unterminated path", mutate(func(b []byte) []byte {
			for i := 8; i < HeaderSize; i++ {
				b[i] = 'a'
			}
			return b
		})},
		{"Missing chunk descriptor", valid[:HeaderSize+8]},
		{"Truncated data", valid[:len(valid)-1]},
		{"Extra data", append(append([]byte(nil), valid...), 0)},
		{"Negative size", mutate(func(b []byte) []byte { return putChunkField(b, 3, -1) })},
		{"Unaligned total", mutate(func(b []byte) []byte { return putChunkField(b, 1, 17) })},
		{"File larger than total", mutate(func(b []byte) []byte { return putChunkField(b, 0, 17) })},
		{"Residual too large", mutate(func(b []byte) []byte { return putChunkField(b, 0, 0) })},
		{"Chunk past the end", mutate(func(b []byte) []byte { return putChunkField(b, 2, 13) })},
		{"Offset overflow", mutate(func(b []byte) []byte { return putChunkField(b, 2, math.MaxInt64) })},
		{"Delete with payload", func() []byte {
			d, _ := (&Packet{Header: Header{Kind: KindDelete, Path: "/docs/a"}}).Encode()
			return append(d, 1, 2, 3)
		}()},
	}

	if _, err := Decode(valid); err != nil {
		t.Fatalf("Reference packet must decode: %v", err)
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			if err == nil {
				t.Errorf("Expected error for %s, got nil", tc.name)
			} else if !errors.Is(err, ErrMalformed) {
				t.Errorf("Expected ErrMalformed for %s, got %v", tc.name, err)
			}
		})
	}
}

// TestEncodeRejectsInvalidPackets tests that invalid packets are never sent
func TestEncodeRejectsInvalidPackets(t *testing.T) {
	long := make([]byte, PathSize)
	for i := range long {
		long[i] = 'a'
	}

	invalid := []Packet{
		NewDelete(1, "/"+string(long)),
		{Header: Header{Kind: KindModify, Path: "/docs/a"}},
		{Header: Header{Kind: KindOnline, Path: "docs"}, Data: []byte{1}},
		{Header: Header{Kind: KindDelete, Path: "/docs/\x00a"}},
	}
	for i, p := range invalid {
		if _, err := p.Encode(); err == nil {
			t.Errorf("Packet %d: expected an error", i)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindOnline.String() != "online" || KindModify.String() != "modify" || KindDelete.String() != "delete" {
		t.Error("Unexpected kind names")
	}
	if Kind(42).String() != "unknown(42)" {
		t.Errorf("Unexpected name for unknown kind: %s", Kind(42))
	}
}
