package app

import (
	"context"
	"fmt"
	"sync"

	"studysphere/internal/domain"
)

// fakePlatform records outbound platform calls and hands out sequential
// room ids. Notifications also land on a channel so timer tests can wait
// for phase changes deterministically.
type fakePlatform struct {
	mu         sync.Mutex
	nextID     int
	failCreate bool
	failPolicy bool
	created    []domain.RoomID
	deleted    []domain.RoomID
	moved      []domain.RoomID
	policies   []policyCall
	notices    []notice
	noticeCh   chan notice
	counts     map[domain.RoomID]int
}

type policyCall struct {
	room   domain.RoomID
	target domain.UserID
	allow  bool
}

type notice struct {
	user domain.UserID
	kind string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		noticeCh: make(chan notice, 16),
		counts:   make(map[domain.RoomID]int),
	}
}

func (f *fakePlatform) CreateRoom(ctx context.Context, name domain.RoomName, kind domain.RoomKind) (domain.RoomID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return "", domain.ErrPermissionDenied
	}
	f.nextID++
	id := domain.RoomID(fmt.Sprintf("room-%d", f.nextID))
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakePlatform) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePlatform) SetConnectPolicy(ctx context.Context, id domain.RoomID, target domain.UserID, allow bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPolicy {
		return domain.ErrPermissionDenied
	}
	f.policies = append(f.policies, policyCall{room: id, target: target, allow: allow})
	return nil
}

func (f *fakePlatform) MoveUser(ctx context.Context, user domain.UserID, to domain.RoomID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moved = append(f.moved, to)
	return nil
}

func (f *fakePlatform) MemberCount(ctx context.Context, id domain.RoomID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.counts[id]
	if !ok {
		return 0, domain.ErrRoomNotFound
	}
	return n, nil
}

func (f *fakePlatform) Notify(ctx context.Context, user domain.UserID, kind string, payload any) {
	f.mu.Lock()
	f.notices = append(f.notices, notice{user: user, kind: kind})
	f.mu.Unlock()
	select {
	case f.noticeCh <- notice{user: user, kind: kind}:
	default:
	}
}

func (f *fakePlatform) deletedRooms() []domain.RoomID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RoomID(nil), f.deleted...)
}

func (f *fakePlatform) noticeKinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.notices))
	for _, n := range f.notices {
		out = append(out, n.kind)
	}
	return out
}
