package core

import (
	"context"

	"studysphere/internal/domain"
)

// Frame is a raw outbound payload (JSON-encoded message).
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds domain.Member and its transport endpoint.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID        domain.UserID `json:"id"`
	Username  string        `json:"username"`
	FocusMode bool          `json:"focus_mode"`
}

type RoomInfo struct {
	ID          domain.RoomID   `json:"id"`
	Name        domain.RoomName `json:"name"`
	Kind        domain.RoomKind `json:"kind"`
	Locked      bool            `json:"locked"`
	MemberCount int             `json:"member_count"`
}

// Platform is the outbound surface to the hosting platform. Creation
// may fail with domain.ErrPermissionDenied; deletion is idempotent and
// never errors on an absent room.
type Platform interface {
	CreateRoom(ctx context.Context, name domain.RoomName, kind domain.RoomKind) (domain.RoomID, error)
	DeleteRoom(ctx context.Context, id domain.RoomID) error

	// SetConnectPolicy applies a permission overwrite. An empty target
	// addresses the default group.
	SetConnectPolicy(ctx context.Context, id domain.RoomID, target domain.UserID, allow bool) error

	MoveUser(ctx context.Context, user domain.UserID, to domain.RoomID) error

	// MemberCount reports the platform's live occupant count for a room.
	// Errors for a room the platform no longer knows.
	MemberCount(ctx context.Context, id domain.RoomID) (int, error)

	// Notify delivers a structured message privately to one user.
	// Best effort; a disconnected user simply misses it.
	Notify(ctx context.Context, user domain.UserID, kind string, payload any)
}
