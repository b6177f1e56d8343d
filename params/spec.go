// Package params defines the chain configuration, spec identifiers, and
// protocol constants for the MegaEVM execution core.
package params

import "fmt"

// SpecID identifies the active MegaEVM execution profile. Equivalence tracks
// the Optimism Isthmus EVM exactly; MiniRex activates the MegaETH resource
// limits, gas schedule, and volatile-data tracking on top of it.
type SpecID uint8

const (
	Equivalence SpecID = iota
	MiniRex
)

// String returns the human-readable name of the spec id.
func (s SpecID) String() string {
	switch s {
	case Equivalence:
		return "EQUIVALENCE"
	case MiniRex:
		return "MINI_REX"
	default:
		return fmt.Sprintf("spec(%d)", uint8(s))
	}
}

// Enabled reports whether the given spec is active under s. Specs are
// strictly ordered: MiniRex includes everything Equivalence has.
func (s SpecID) Enabled(other SpecID) bool {
	return s >= other
}
