package serializer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout: 1 byte MsgType, 2 bytes flags (big endian), followed by the present
// fields in the order of the flags. Strings and byte slices are prefixed with
// a 4 byte length, lists with a 4 byte element count.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasPath   uint16 = 1 << 0
	hasTo     uint16 = 1 << 1
	hasOffset uint16 = 1 << 2
	hasSize   uint16 = 1 << 3
	hasData   uint16 = 1 << 4
	hasFiles  uint16 = 1 << 5
	hasNames  uint16 = 1 << 6
	hasUsage  uint16 = 1 << 7
	hasOk     uint16 = 1 << 8
	hasCode   uint16 = 1 << 9
	hasErr    uint16 = 1 << 10
)

const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	w := binaryWriter{buf: make([]byte, headerSize, b.sizeBytes(msg))}
	w.buf[0] = byte(msg.MsgType)

	var flags uint16
	if msg.Path != "" {
		flags |= hasPath
		w.string(msg.Path)
	}
	if msg.To != "" {
		flags |= hasTo
		w.string(msg.To)
	}
	if msg.Offset != 0 {
		flags |= hasOffset
		w.uint64(uint64(msg.Offset))
	}
	if msg.Size != 0 {
		flags |= hasSize
		w.uint64(uint64(msg.Size))
	}
	if msg.Data != nil {
		flags |= hasData
		w.bytes(msg.Data)
	}
	if msg.Files != nil {
		flags |= hasFiles
		w.uint32(uint32(len(msg.Files)))
		for _, f := range msg.Files {
			w.string(f.Path)
			w.uint64(uint64(f.Size))
			w.uint64(uint64(f.Timestamp))
			w.bool(f.Deleted)
		}
	}
	if msg.Names != nil {
		flags |= hasNames
		w.uint32(uint32(len(msg.Names)))
		for _, name := range msg.Names {
			w.string(name)
		}
	}
	if msg.Usage != (store.DiskUsage{}) {
		flags |= hasUsage
		w.uint64(msg.Usage.Total)
		w.uint64(msg.Usage.Free)
		w.uint64(msg.Usage.Used)
		w.uint64(math.Float64bits(msg.Usage.UsedPercent))
	}
	if msg.Ok {
		flags |= hasOk
		w.bool(true)
	}
	if msg.Code != store.RetCSuccess {
		flags |= hasCode
		w.uint64(uint64(msg.Code))
	}
	if msg.Err != "" {
		flags |= hasErr
		w.string(msg.Err)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(w.buf[1:3], flags)

	return w.buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := binary.BigEndian.Uint16(data[1:3])
	r := binaryReader{data: data, pos: headerSize}

	if flags&hasPath != 0 {
		msg.Path = r.string("path")
	}
	if flags&hasTo != 0 {
		msg.To = r.string("to")
	}
	if flags&hasOffset != 0 {
		msg.Offset = int64(r.uint64("offset"))
	}
	if flags&hasSize != 0 {
		msg.Size = int64(r.uint64("size"))
	}
	if flags&hasData != 0 {
		msg.Data = r.bytes("data")
	}
	if flags&hasFiles != 0 {
		n := r.count("files", 21)
		msg.Files = make([]store.FileInfo, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			msg.Files = append(msg.Files, store.FileInfo{
				Path:      r.string("file path"),
				Size:      int64(r.uint64("file size")),
				Timestamp: int64(r.uint64("file timestamp")),
				Deleted:   r.bool("file deleted"),
			})
		}
	}
	if flags&hasNames != 0 {
		n := r.count("names", 4)
		msg.Names = make([]string, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			msg.Names = append(msg.Names, r.string("name"))
		}
	}
	if flags&hasUsage != 0 {
		msg.Usage.Total = r.uint64("usage total")
		msg.Usage.Free = r.uint64("usage free")
		msg.Usage.Used = r.uint64("usage used")
		msg.Usage.UsedPercent = math.Float64frombits(r.uint64("usage percent"))
	}
	if flags&hasOk != 0 {
		msg.Ok = r.bool("ok")
	}
	if flags&hasCode != 0 {
		msg.Code = store.RetCode(r.uint64("code"))
	}
	if flags&hasErr != 0 {
		msg.Err = r.string("err")
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	if msg.Path != "" {
		size += 4 + len(msg.Path)
	}
	if msg.To != "" {
		size += 4 + len(msg.To)
	}
	if msg.Offset != 0 {
		size += 8
	}
	if msg.Size != 0 {
		size += 8
	}
	if msg.Data != nil {
		size += 4 + len(msg.Data)
	}
	if msg.Files != nil {
		size += 4
		for _, f := range msg.Files {
			size += 4 + len(f.Path) + 8 + 8 + 1
		}
	}
	if msg.Names != nil {
		size += 4
		for _, name := range msg.Names {
			size += 4 + len(name)
		}
	}
	if msg.Usage != (store.DiskUsage{}) {
		size += 4 * 8
	}
	if msg.Ok {
		size += 1
	}
	if msg.Code != store.RetCSuccess {
		size += 8
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}

	return size
}

// binaryWriter appends big endian values to buf
type binaryWriter struct {
	buf []byte
}

func (w *binaryWriter) uint32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *binaryWriter) uint64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }

func (w *binaryWriter) bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *binaryWriter) string(s string) {
	w.uint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *binaryWriter) bytes(b []byte) {
	w.uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// binaryReader reads big endian values from data. The first error sticks,
// every later read returns the zero value.
type binaryReader struct {
	data []byte
	pos  int
	err  error
}

// take returns the next n bytes or nil if the data is too short
func (r *binaryReader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", what)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *binaryReader) uint32(what string) uint32 {
	if b := r.take(4, what); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *binaryReader) uint64(what string) uint64 {
	if b := r.take(8, what); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *binaryReader) bool(what string) bool {
	if b := r.take(1, what); b != nil {
		return b[0] != 0
	}
	return false
}

func (r *binaryReader) string(what string) string {
	n := r.uint32(what + " length")
	return string(r.take(int(n), what))
}

// bytes returns a copy, the data buffer may be reused by the transport. An
// empty slice stays non nil.
func (r *binaryReader) bytes(what string) []byte {
	n := r.uint32(what + " length")
	b := r.take(int(n), what)
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}

// count reads an element count and checks it against the remaining data,
// minSize is the smallest encoding of one element
func (r *binaryReader) count(what string, minSize int) int {
	n := int(r.uint32(what + " count"))
	if r.err == nil && n > (len(r.data)-r.pos)/minSize {
		r.err = fmt.Errorf("data too short for %d %s", n, what)
		return 0
	}
	return n
}
