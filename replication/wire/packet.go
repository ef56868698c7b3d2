package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dFS/lib/buffer"
)

// Kind is the type of a replication packet
type Kind int32

const (
	// KindOnline announces a peer for a namespace, receivers reply with their state
	KindOnline Kind = 0
	// KindModify carries one chunk of a file's content
	KindModify Kind = 1
	// KindDelete tombstones a file
	KindDelete Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindOnline:
		return "online"
	case KindModify:
		return "modify"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("unknown(%d)", int32(k))
	}
}

const (
	// PathSize is the width of the path field, including the terminating NUL
	PathSize = 512
	// MaxPathLen is the longest path that fits into a packet
	MaxPathLen = PathSize - 1
	// HeaderSize is the encoded size of a Header
	HeaderSize = 4 + 4 + PathSize
	// ChunkHeaderSize is the encoded size of a Chunk descriptor
	ChunkHeaderSize = 4 * 8
	// ChunkSize is the maximum number of content bytes per Modify packet
	ChunkSize = 1024
)

var (
	// ErrMalformed is returned for packets that violate the wire format
	ErrMalformed = errors.New("malformed packet")
)

// Header is the common part of every packet
type Header struct {
	Kind Kind
	Time int32
	Path string
}

// Chunk describes the slice of a file carried by a Modify packet
type Chunk struct {
	FileSize  int64 // logical file length
	TotalSize int64 // block aligned length, FileSize + residual
	Offset    int64 // start of Data within the aligned buffer
	Size      int64 // length of Data
}

// Residual returns the number of trailing bytes beyond the logical length
func (c *Chunk) Residual() int {
	return int(c.TotalSize - c.FileSize)
}

// Packet is one replication message. Chunk and Data are only set for Modify.
type Packet struct {
	Header
	Chunk *Chunk
	Data  []byte
}

// --------------------------------------------------------------------------
// Packet builders
// --------------------------------------------------------------------------

// NewOnline creates the announcement of a namespace
func NewOnline(time int32, namespace string) Packet {
	return Packet{Header: Header{Kind: KindOnline, Time: time, Path: namespace}}
}

// NewDelete creates a tombstone packet for path
func NewDelete(time int32, path string) Packet {
	return Packet{Header: Header{Kind: KindDelete, Time: time, Path: path}}
}

// SplitModify creates the Modify packets that transfer content, which must be
// block aligned, with residualLen trailing bytes beyond the logical length.
// Content is split into ChunkSize pieces; empty content yields one packet
// with an empty chunk. The packets reference content, they do not copy it.
func SplitModify(time int32, path string, content []byte, residualLen int) []Packet {
	total := int64(len(content))
	fileSize := total - int64(residualLen)

	spans := buffer.Chunks(len(content), ChunkSize)
	packets := make([]Packet, 0, len(spans))
	for _, s := range spans {
		packets = append(packets, Packet{
			Header: Header{Kind: KindModify, Time: time, Path: path},
			Chunk: &Chunk{
				FileSize:  fileSize,
				TotalSize: total,
				Offset:    int64(s.Offset),
				Size:      int64(s.Length),
			},
			Data: content[s.Offset : s.Offset+s.Length],
		})
	}
	return packets
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Size returns the encoded size of the packet
func (p *Packet) Size() int {
	if p.Chunk == nil {
		return HeaderSize
	}
	return HeaderSize + ChunkHeaderSize + len(p.Data)
}

// Encode serializes the packet
func (p *Packet) Encode() ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	result := make([]byte, p.Size())

	// Write header
	binary.BigEndian.PutUint32(result[0:4], uint32(p.Kind))
	binary.BigEndian.PutUint32(result[4:8], uint32(p.Time))
	copy(result[8:8+PathSize], p.Path) // rest stays NUL

	if p.Chunk == nil {
		return result, nil
	}

	// Write chunk descriptor
	pos := HeaderSize
	for _, v := range []int64{p.Chunk.FileSize, p.Chunk.TotalSize, p.Chunk.Offset, p.Chunk.Size} {
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(v))
		pos += 8
	}

	// Write chunk data
	copy(result[pos:], p.Data)

	return result, nil
}

// Decode parses a packet. Data of the returned packet references data.
func Decode(data []byte) (Packet, error) {
	var p Packet

	if len(data) < HeaderSize {
		return p, fmt.Errorf("%w: %d bytes is too short for the header", ErrMalformed, len(data))
	}

	// Read header
	p.Kind = Kind(binary.BigEndian.Uint32(data[0:4]))
	p.Time = int32(binary.BigEndian.Uint32(data[4:8]))

	pathField := data[8 : 8+PathSize]
	end := bytes.IndexByte(pathField, 0)
	if end < 0 {
		return p, fmt.Errorf("%w: path is not terminated", ErrMalformed)
	}
	p.Path = string(pathField[:end])

	switch p.Kind {
	case KindOnline, KindDelete:
		if len(data) != HeaderSize {
			return p, fmt.Errorf("%w: %s packet has %d trailing bytes", ErrMalformed, p.Kind, len(data)-HeaderSize)
		}
		return p, nil
	case KindModify:
	default:
		return p, fmt.Errorf("%w: unknown kind %d", ErrMalformed, int32(p.Kind))
	}

	// Read chunk descriptor
	if len(data) < HeaderSize+ChunkHeaderSize {
		return p, fmt.Errorf("%w: modify packet without chunk descriptor", ErrMalformed)
	}
	pos := HeaderSize
	var fields [4]int64
	for i := range fields {
		fields[i] = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	}
	p.Chunk = &Chunk{FileSize: fields[0], TotalSize: fields[1], Offset: fields[2], Size: fields[3]}

	// Size may be anything here, validate before slicing
	if p.Chunk.Size < 0 || int64(len(data)-pos) != p.Chunk.Size {
		return p, fmt.Errorf("%w: chunk declares %d bytes but %d follow", ErrMalformed, p.Chunk.Size, len(data)-pos)
	}
	p.Data = data[pos:]

	if err := p.validate(); err != nil {
		return p, err
	}
	return p, nil
}

// validate checks the shape of the packet
func (p *Packet) validate() error {
	if len(p.Path) > MaxPathLen {
		return fmt.Errorf("%w: path of %d bytes exceeds %d", ErrMalformed, len(p.Path), MaxPathLen)
	}
	if bytes.IndexByte([]byte(p.Path), 0) >= 0 {
		return fmt.Errorf("%w: path contains NUL", ErrMalformed)
	}

	switch p.Kind {
	case KindOnline, KindDelete:
		if p.Chunk != nil || len(p.Data) != 0 {
			return fmt.Errorf("%w: %s packet must not carry data", ErrMalformed, p.Kind)
		}
		return nil
	case KindModify:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMalformed, int32(p.Kind))
	}

	c := p.Chunk
	switch {
	case c == nil:
		return fmt.Errorf("%w: modify packet without chunk", ErrMalformed)
	case c.FileSize < 0 || c.FileSize > c.TotalSize:
		return fmt.Errorf("%w: file size %d outside [0, %d]", ErrMalformed, c.FileSize, c.TotalSize)
	case !buffer.IsAligned(int(c.TotalSize)):
		return fmt.Errorf("%w: total size %d is not block aligned", ErrMalformed, c.TotalSize)
	case c.TotalSize-c.FileSize >= buffer.BlockSize:
		return fmt.Errorf("%w: residual of %d bytes", ErrMalformed, c.TotalSize-c.FileSize)
	case c.Offset < 0 || c.Size < 0 || c.Offset > c.TotalSize-c.Size:
		return fmt.Errorf("%w: chunk [%d, %d) outside of %d bytes", ErrMalformed, c.Offset, c.Offset+c.Size, c.TotalSize)
	case int64(len(p.Data)) != c.Size:
		return fmt.Errorf("%w: chunk size %d but %d data bytes", ErrMalformed, c.Size, len(p.Data))
	}
	return nil
}
