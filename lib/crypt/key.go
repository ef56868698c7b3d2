package crypt

import (
	"errors"
	"fmt"
	"strings"
)

// KeySize is the size of a SecretKey in bytes
const KeySize = 32

// SecretKey is the symmetric key of one namespace
type SecretKey [KeySize]byte

// Derive derives the key for a passphrase. The passphrase is repeated until
// it is at least KeySize bytes long and then folded into the key with XOR,
// byte i going into key byte i mod KeySize.
//
// Derive is deterministic and never fails. The empty passphrase yields the
// zero key.
func Derive(passphrase string) SecretKey {
	var key SecretKey
	if passphrase == "" {
		return key
	}

	material := passphrase
	for len(material) < KeySize {
		material += material
	}
	for i := 0; i < len(material); i++ {
		key[i%KeySize] ^= material[i]
	}
	return key
}

// --------------------------------------------------------------------------
// Namespaces
// --------------------------------------------------------------------------

var (
	// ErrInvalidNamespace is returned for malformed namespace definitions
	ErrInvalidNamespace = errors.New("invalid namespace")
)

// Namespace is a top level directory protected by one key
type Namespace struct {
	Name       string
	Passphrase string
	Key        SecretKey
}

// ParseNamespace parses a namespace definition of the form "name:passphrase".
// The definition is split at the first colon, so the passphrase may contain
// colons itself.
func ParseNamespace(s string) (Namespace, error) {
	name, passphrase, found := strings.Cut(s, ":")
	if !found {
		return Namespace{}, fmt.Errorf("%w: %q (expected name:passphrase)", ErrInvalidNamespace, s)
	}
	if name == "" {
		return Namespace{}, fmt.Errorf("%w: %q has an empty name", ErrInvalidNamespace, s)
	}
	if strings.ContainsRune(name, '/') || name == "." || name == ".." {
		return Namespace{}, fmt.Errorf("%w: %q is not a valid directory name", ErrInvalidNamespace, name)
	}

	return Namespace{
		Name:       name,
		Passphrase: passphrase,
		Key:        Derive(passphrase),
	}, nil
}

// ParseNamespaces parses a list of definitions and rejects duplicate names
func ParseNamespaces(defs []string) ([]Namespace, error) {
	seen := make(map[string]struct{}, len(defs))
	namespaces := make([]Namespace, 0, len(defs))

	for _, def := range defs {
		ns, err := ParseNamespace(strings.TrimSpace(def))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[ns.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate namespace %q", ErrInvalidNamespace, ns.Name)
		}
		seen[ns.Name] = struct{}{}
		namespaces = append(namespaces, ns)
	}

	return namespaces, nil
}
