package lbp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParams is returned by NewOperator for unusable parameter combinations.
	ErrInvalidParams = errors.New("lbp: invalid operator parameters")

	// ErrPlaneTooSmall is returned when a plane has no pixel far enough from
	// the border to sample a full neighbourhood.
	ErrPlaneTooSmall = errors.New("lbp: plane too small for radius")
)

// Variant selects how raw codes are mapped to histogram bins.
type Variant int

const (
	// Regular keeps the raw code as the bin index.
	Regular Variant = iota
	// RIU2 is rotation-invariant uniform: bin = number of set bits for
	// uniform codes, P+1 otherwise.
	RIU2
	// Uniform gives every uniform code its own bin and pools the rest.
	Uniform
)

// binCounts is the fixed histogram length per variant.
var binCounts = map[Variant]int{
	Regular: 256,
	RIU2:    10,
	Uniform: 59,
}

// Bins returns the histogram length for v, or 0 for an unknown variant.
func Bins(v Variant) int {
	return binCounts[v]
}

func (v Variant) String() string {
	switch v {
	case Regular:
		return "regular"
	case RIU2:
		return "riu2"
	case Uniform:
		return "uniform"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant converts a configuration name to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "regular":
		return Regular, nil
	case "riu2":
		return RIU2, nil
	case "uniform":
		return Uniform, nil
	}
	return 0, fmt.Errorf("%w: unknown LBP type %q (want regular, riu2 or uniform)", ErrInvalidParams, s)
}

// Mode selects how neighbour samples are turned into bits.
type Mode int

const (
	// ModeRegular compares each neighbour with the centre pixel.
	ModeRegular Mode = iota
	// ModeTransitional compares each neighbour with the next one around the circle.
	ModeTransitional
	// ModeDirectionCoded encodes two bits per pair of opposite neighbours:
	// whether the gradients through the centre share a sign and which is larger.
	ModeDirectionCoded
	// ModeModified compares each neighbour with the neighbourhood mean
	// (centre included), as in the modified census transform.
	ModeModified
)

func (m Mode) String() string {
	switch m {
	case ModeRegular:
		return "regular"
	case ModeTransitional:
		return "transitional"
	case ModeDirectionCoded:
		return "direction_coded"
	case ModeModified:
		return "modified"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a configuration name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "regular":
		return ModeRegular, nil
	case "transitional":
		return ModeTransitional, nil
	case "direction_coded":
		return ModeDirectionCoded, nil
	case "modified":
		return ModeModified, nil
	}
	return 0, fmt.Errorf("%w: unknown extended LBP type %q (want regular, transitional, direction_coded or modified)", ErrInvalidParams, s)
}
