// Package identity derives pseudonymous caller identifiers from network addresses.
//
// The identifier space is deliberately small so that unrelated addresses
// collide. This is pseudonymisation, not anonymisation: the mapping is an
// unkeyed hash, so anyone holding an address can compute its CallerID, and a
// CallerID narrows an address down to roughly 1/Space of the address space.
package identity

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Space bounds every CallerID to [0, Space).
const Space = 15000

// CallerID is the pseudonymous identity of a submitter or voter.
type CallerID uint64

// Hash maps a raw caller address to its CallerID.
//
// The hash is unseeded, so the same address yields the same CallerID across
// process restarts. Restored voter sets and ledger entries rely on that.
func Hash(raw string) CallerID {
	return CallerID(xxhash.Sum64String(raw) % Space)
}

// String renders the id in decimal.
func (c CallerID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}
