package base

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"github.com/ValentinKolb/dFS/lib/buffer"
	"github.com/ValentinKolb/dFS/lib/crypt"
)

const (
	// EnvelopeVersion is the only accepted envelope version
	EnvelopeVersion = 1
	// HeaderSize is the size of the clear (and of the sealed) header
	HeaderSize = 16
)

// drop reasons, used as metric label
const (
	reasonSize    = "size"
	reasonVersion = "version"
	reasonClock   = "clock"
	reasonLength  = "length"
	reasonKey     = "key"
)

// dropError is returned by open for datagrams that fail validation
type dropError struct {
	reason string
	msg    string
}

func (e *dropError) Error() string { return e.reason + ": " + e.msg }

// envelopeHeader is the clear header of an envelope
type envelopeHeader struct {
	Version   uint32
	Time      uint32
	RealLen   uint32
	PaddedLen uint32
}

func (h *envelopeHeader) encode(dst []byte) {
	binary.BigEndian.PutUint32(dst[0:4], h.Version)
	binary.BigEndian.PutUint32(dst[4:8], h.Time)
	binary.BigEndian.PutUint32(dst[8:12], h.RealLen)
	binary.BigEndian.PutUint32(dst[12:16], h.PaddedLen)
}

func decodeHeader(src []byte) envelopeHeader {
	return envelopeHeader{
		Version:   binary.BigEndian.Uint32(src[0:4]),
		Time:      binary.BigEndian.Uint32(src[4:8]),
		RealLen:   binary.BigEndian.Uint32(src[8:12]),
		PaddedLen: binary.BigEndian.Uint32(src[12:16]),
	}
}

// key is one configured namespace key
type key struct {
	namespace string
	cipher    crypt.ICipher
}

func newKeys(namespaces []crypt.Namespace) []key {
	keys := make([]key, 0, len(namespaces))
	for _, ns := range namespaces {
		keys = append(keys, key{namespace: ns.Name, cipher: crypt.NewCipher(ns.Key)})
	}
	return keys
}

// seal builds the envelope of payload
func seal(c crypt.ICipher, now time.Time, payload []byte) []byte {
	padded := buffer.PaddedLen(len(payload))
	out := make([]byte, 2*HeaderSize+padded)

	h := envelopeHeader{
		Version:   EnvelopeVersion,
		Time:      uint32(now.Unix()),
		RealLen:   uint32(len(payload)),
		PaddedLen: uint32(padded),
	}
	h.encode(out[:HeaderSize])
	c.Encrypt(out[HeaderSize:2*HeaderSize], out[:HeaderSize])

	body := out[2*HeaderSize:]
	copy(body, payload) // rest is the zero padding
	c.Encrypt(body, body)
	return out
}

// open validates an envelope and returns the namespace of the matching key and
// the decrypted payload. The payload does not reference data.
func open(keys []key, now time.Time, maxSkew time.Duration, data []byte) (string, []byte, error) {
	// (1) size
	if len(data) < 2*HeaderSize {
		return "", nil, &dropError{reasonSize, "datagram shorter than two headers"}
	}

	// (2) version
	h := decodeHeader(data[:HeaderSize])
	if h.Version != EnvelopeVersion {
		return "", nil, &dropError{reasonVersion, "unsupported envelope version"}
	}

	// (3) clock
	skew := now.Unix() - int64(h.Time)
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > maxSkew {
		return "", nil, &dropError{reasonClock, "envelope time outside of the accepted window"}
	}

	// (4) length
	body := data[2*HeaderSize:]
	if !buffer.IsAligned(int(h.PaddedLen)) || int(h.PaddedLen) != len(body) || h.RealLen > h.PaddedLen {
		return "", nil, &dropError{reasonLength, "declared length does not match the datagram"}
	}

	// (5) key identification
	var check [HeaderSize]byte
	for _, k := range keys {
		k.cipher.Encrypt(check[:], data[:HeaderSize])
		if !bytes.Equal(check[:], data[HeaderSize:2*HeaderSize]) {
			continue
		}
		payload := make([]byte, len(body))
		k.cipher.Decrypt(payload, body)
		return k.namespace, payload[:h.RealLen], nil
	}

	return "", nil, &dropError{reasonKey, "no configured key matches"}
}

// dropReason returns the metric label of a validation error
func dropReason(err error) string {
	var de *dropError
	if errors.As(err, &de) {
		return de.reason
	}
	return "unknown"
}
