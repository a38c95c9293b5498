package router

import "github.com/Cogwheel-Validator/spectra-sender/sender/models"

// Path is the transfer strategy chosen for a (source, destination) pair.
type Path int

const (
	// PathDirectToIntermediary sends from the root network to a non-root network
	PathDirectToIntermediary Path = iota
	// PathIntermediaryToDirect sends from a non-root network back to the root network
	PathIntermediaryToDirect
	// PathIntermediaryToIntermediary sends between two non-root networks through the root
	PathIntermediaryToIntermediary
)

func (p Path) String() string {
	switch p {
	case PathDirectToIntermediary:
		return "direct_to_intermediary"
	case PathIntermediaryToDirect:
		return "intermediary_to_direct"
	case PathIntermediaryToIntermediary:
		return "intermediary_to_intermediary"
	default:
		return "unknown"
	}
}

// SelectPath is the only place the path trichotomy is decided.
func SelectPath(source, destination models.Network) Path {
	if source.IsRoot {
		return PathDirectToIntermediary
	}
	if destination.IsRoot {
		return PathIntermediaryToDirect
	}
	return PathIntermediaryToIntermediary
}
