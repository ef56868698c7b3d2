// Package crypt provides the key material and the block cipher used by the
// dFS store. Every namespace is protected by exactly one SecretKey which is
// derived from the namespace passphrase.
//
// The package focuses on:
//   - Deterministic key derivation from a passphrase (Derive)
//   - Parsing of namespace definitions in the form "name:passphrase"
//   - A length-preserving, deterministic block cipher (ICipher)
//
// Key Components:
//
//   - SecretKey: 32 byte symmetric key of a namespace.
//
//   - Namespace: name, passphrase and the derived key. The name is the first
//     path segment of every file that belongs to the namespace.
//
//   - ICipher: encrypts and decrypts buffers whose length is a multiple of
//     BlockSize. The ciphertext has exactly the length of the plaintext, which
//     is what allows the store to keep the on-disk files block aligned and the
//     transport to identify keys by re-encrypting a known header.
//
// Security Notes:
//
//	Derive is a reversible XOR fold and not a password hashing function. Short
//	or related passphrases produce weak or related keys. The cipher is
//	XTS-AES-128 with a constant sector number, so two identical buffers encrypt
//	to identical ciphertexts. Both properties are required by the wire format
//	(the receiver identifies the key by reproducing a ciphertext) and are kept
//	on purpose.
package crypt
