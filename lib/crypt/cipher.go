package crypt

import (
	"crypto/aes"
	"fmt"

	"golang.org/x/crypto/xts"
)

// BlockSize is the cipher block size. All buffers passed to an ICipher must
// have a length that is a multiple of BlockSize.
const BlockSize = aes.BlockSize

// sector is the XTS sector number used for every buffer. A constant sector
// keeps the cipher deterministic, which key identification depends on.
const sector = 0

// ICipher is a deterministic, length-preserving block cipher
type ICipher interface {
	// Encrypt encrypts src into dst. dst and src must have the same length,
	// a multiple of BlockSize, and must either overlap exactly or not at all.
	Encrypt(dst, src []byte)
	// Decrypt decrypts src into dst with the same restrictions as Encrypt.
	Decrypt(dst, src []byte)
}

// xtsCipher implements ICipher with XTS-AES-128 (256 bit key)
type xtsCipher struct {
	c *xts.Cipher
}

// NewCipher creates the cipher for a key.
//
// Thread-safety: the returned cipher is safe for concurrent use.
func NewCipher(key SecretKey) ICipher {
	c, err := xts.NewCipher(aes.NewCipher, key[:])
	if err != nil {
		// the key size is fixed at compile time, this can not happen
		panic(fmt.Sprintf("crypt: failed to create xts cipher: %v", err))
	}
	return &xtsCipher{c: c}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see crypt.ICipher)
// --------------------------------------------------------------------------

func (x *xtsCipher) Encrypt(dst, src []byte) {
	checkLengths(dst, src)
	if len(src) == 0 {
		return
	}
	x.c.Encrypt(dst, src, sector)
}

func (x *xtsCipher) Decrypt(dst, src []byte) {
	checkLengths(dst, src)
	if len(src) == 0 {
		return
	}
	x.c.Decrypt(dst, src, sector)
}

func checkLengths(dst, src []byte) {
	if len(src)%BlockSize != 0 {
		panic(fmt.Sprintf("crypt: input length %d is not a multiple of %d", len(src), BlockSize))
	}
	if len(dst) != len(src) {
		panic(fmt.Sprintf("crypt: output length %d does not match input length %d", len(dst), len(src)))
	}
}
