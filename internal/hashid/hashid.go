// Package hashid maps a (company identifier, employee number) pair to the
// opaque key under which imported HR records are indexed.
//
// The key is a keyed BLAKE2b-256 digest. The same key material must be used
// for import and lookup; rotating it or changing the encoding invalidates the
// whole index and requires a re-import.
package hashid

import (
	"encoding/binary"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

var ErrEmptyKey = errors.New("hash key material is empty")

type Hasher struct {
	key []byte
}

func New(key []byte) (*Hasher, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if len(key) > blake2b.Size {
		// blake2b accepts at most 64 key bytes; longer secrets are folded.
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Hasher{key: k}, nil
}

// Hash returns the hex encoded lookup key. Inputs are used verbatim.
func (h *Hasher) Hash(companyID, employeeNumber string) string {
	d, err := blake2b.New256(h.key)
	if err != nil {
		// only reachable with an oversized key, which New rules out
		panic(err)
	}
	writeField(d, companyID)
	writeField(d, employeeNumber)
	return hex.EncodeToString(d.Sum(nil))
}

func writeField(w interface{ Write([]byte) (int, error) }, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	_, _ = w.Write(n[:])
	_, _ = w.Write([]byte(s))
}
