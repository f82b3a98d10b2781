package resource

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Hash computes a unique string based on the desired state of a record.
//
// The following values contribute to the hash:
//   Resource type
//   Declared attributes
//
// Observed values do not. Two records with the same type and attributes
// always produce the same hash; the reconciler uses this to skip records
// that have not changed since the last run.
//
// Panics if an attribute value cannot be canonicalized. Attribute values
// come from JSON-compatible config decoding, so a panic always indicates a
// bug in the decoder rather than bad user input.
func Hash(r Record) string {
	h := fnv.New64()

	if _, err := h.Write([]byte(r.Type)); err != nil {
		panic(err)
	}

	// encoding/json writes map keys in sorted order, giving a canonical
	// byte representation for the attribute set.
	b, err := json.Marshal(r.Attrs)
	if err != nil {
		panic(fmt.Sprintf("canonicalize attributes for %s: %v", r.Addr(), err))
	}
	if _, err := h.Write(b); err != nil {
		panic(err)
	}

	return hex.EncodeToString(h.Sum(nil))
}
