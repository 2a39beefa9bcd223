// Package model contains domain models passed between layers.
package model

import "strings"

// Player is a rated participant. The persistence store owns the record; the
// match layer only holds copies for the lifetime of a match.
type Player struct {
	ID         uint64 // chat platform user id
	Name       string
	Rating     int
	Active     bool
	Registered bool
}

// Side identifies one of the two teams in a match.
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

// Other returns the opposing side. SideNone has no opponent.
func (s Side) Other() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	default:
		return SideNone
	}
}

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return "none"
	}
}

// ParseSide accepts "a"/"b" in any case; anything else is SideNone.
func ParseSide(v string) Side {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "a":
		return SideA
	case "b":
		return SideB
	default:
		return SideNone
	}
}

// MapType is the game mode of a map.
type MapType int

const (
	MapAssault MapType = iota + 1
	MapHybrid
	MapEscort
	MapControl
)

// String returns the display name of the map type.
func (t MapType) String() string {
	switch t {
	case MapAssault:
		return "Assault"
	case MapHybrid:
		return "Hybrid"
	case MapEscort:
		return "Escort"
	case MapControl:
		return "Control"
	default:
		return ""
	}
}

// ParseMapType maps a display name back to its MapType. ok is false for
// unknown names.
func ParseMapType(v string) (MapType, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "assault":
		return MapAssault, true
	case "hybrid":
		return MapHybrid, true
	case "escort":
		return MapEscort, true
	case "control":
		return MapControl, true
	default:
		return 0, false
	}
}

// GameMap is a map candidate offered during the map phase.
type GameMap struct {
	Name string
	Type MapType
}

// Label renders the map with its mode, e.g. "Numbani (Hybrid)".
func (m GameMap) Label() string {
	if m.Type.String() == "" {
		return m.Name
	}
	return m.Name + " (" + m.Type.String() + ")"
}
