// Package id mints opaque identifiers used to correlate log lines.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync/atomic"
)

var fallbackSeq atomic.Uint64

// New returns prefix, an underscore and 16 random hex characters. When the
// system random source fails it falls back to a process-local sequence.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return prefix + "_seq" + strconv.FormatUint(fallbackSeq.Add(1), 10)
	}
	return prefix + "_" + hex.EncodeToString(buf)
}
