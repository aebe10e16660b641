package domain

type (
	RoomName string
	RoomID   string
)

// RoomKind classifies an ephemeral room by the portal that spawned it.
type RoomKind string

const (
	KindGeneral RoomKind = "general"
	KindFocus   RoomKind = "focus"
)

// Override is a per-user connect override on a room. Overrides stick
// until explicitly reversed, regardless of the room's lock state.
type Override int

const (
	OverrideNone Override = iota
	OverrideTrusted
	OverrideKicked
)

// Room is the registry's record of one ephemeral room. The registry,
// not channel metadata, is the source of truth for owner and kind.
type Room struct {
	ID     RoomID   `json:"id"`
	Name   RoomName `json:"name"`
	Owner  UserID   `json:"owner"`
	Kind   RoomKind `json:"kind"`
	Locked bool     `json:"locked"`
	Seq    int      `json:"seq"`
}
