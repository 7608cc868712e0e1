// Package memory provides a process local persistence.RoomRepository used for
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/secret-nick/internal/persistence"
)

// Store keeps rooms in memory. All reads return deep copies.
type Store struct {
	mu         sync.RWMutex
	rooms      map[uint64]persistence.Room
	byInvite   map[string]uint64
	byAuthCode map[string]uint64
	nextRoomID uint64
	nextUserID uint64
	now        func() time.Time
}

// New returns an empty Store. now stamps created and modified times; nil uses the wall clock.
func New(now func() time.Time) *Store {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		rooms:      make(map[uint64]persistence.Room),
		byInvite:   make(map[string]uint64),
		byAuthCode: make(map[string]uint64),
		now:        now,
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Migrate is a no-op.
func (s *Store) Migrate(context.Context) error {
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// CreateRoom stores a new room and assigns ids to it and its users.
func (s *Store) CreateRoom(_ context.Context, room persistence.Room) (persistence.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byInvite[room.InvitationCode]; ok {
		return persistence.Room{}, fmt.Errorf("%w: invitation code %q", persistence.ErrDuplicate, room.InvitationCode)
	}
	if err := s.ensureUniqueAuthCodesLocked(0, room.Users); err != nil {
		return persistence.Room{}, err
	}

	now := s.now()
	s.nextRoomID++
	room = cloneRoom(room)
	room.ID = s.nextRoomID
	room.Version = 1
	if room.CreatedOn.IsZero() {
		room.CreatedOn = now
	}
	room.ModifiedOn = now
	s.stampUsersLocked(&room, now)

	s.storeLocked(room)
	return cloneRoom(room), nil
}

// UpdateRoom replaces a stored room when the versions match.
func (s *Store) UpdateRoom(_ context.Context, room persistence.Room) (persistence.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[room.ID]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	if current.Version != room.Version {
		return persistence.Room{}, persistence.ErrVersionConflict
	}
	if err := s.ensureUniqueAuthCodesLocked(room.ID, room.Users); err != nil {
		return persistence.Room{}, err
	}
	stored := make(map[uint64]bool, len(current.Users))
	for _, u := range current.Users {
		stored[u.ID] = true
	}
	for _, u := range room.Users {
		if u.ID != 0 && !stored[u.ID] {
			return persistence.Room{}, fmt.Errorf("%w: user %d is not stored in room %d", persistence.ErrNotFound, u.ID, room.ID)
		}
	}

	now := s.now()
	room = cloneRoom(room)
	room.InvitationCode = current.InvitationCode
	room.CreatedOn = current.CreatedOn
	room.ModifiedOn = now
	room.Version = current.Version + 1
	s.stampUsersLocked(&room, now)

	keep := make(map[uint64]bool, len(room.Users))
	for _, u := range room.Users {
		keep[u.ID] = true
	}
	for _, u := range current.Users {
		if !keep[u.ID] {
			delete(s.byAuthCode, u.AuthCode)
			for i := range room.Users {
				if r := room.Users[i].GiftRecipientUserID; r != nil && *r == u.ID {
					room.Users[i].GiftRecipientUserID = nil
				}
			}
		}
	}

	s.storeLocked(room)
	return cloneRoom(room), nil
}

// GetRoom returns the room with id.
func (s *Store) GetRoom(_ context.Context, id uint64) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return cloneRoom(room), nil
}

// GetRoomByInvitationCode returns the room with the given invitation code.
func (s *Store) GetRoomByInvitationCode(ctx context.Context, code string) (persistence.Room, error) {
	s.mu.RLock()
	id, ok := s.byInvite[code]
	s.mu.RUnlock()
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return s.GetRoom(ctx, id)
}

// GetRoomByUserCode returns the room containing the user with code.
func (s *Store) GetRoomByUserCode(ctx context.Context, code string) (persistence.Room, error) {
	s.mu.RLock()
	id, ok := s.byAuthCode[code]
	s.mu.RUnlock()
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return s.GetRoom(ctx, id)
}

func (s *Store) ensureUniqueAuthCodesLocked(roomID uint64, users []persistence.User) error {
	seen := make(map[string]bool, len(users))
	for _, u := range users {
		if seen[u.AuthCode] {
			return fmt.Errorf("%w: user code %q", persistence.ErrDuplicate, u.AuthCode)
		}
		seen[u.AuthCode] = true
		if owner, ok := s.byAuthCode[u.AuthCode]; ok && owner != roomID {
			return fmt.Errorf("%w: user code %q", persistence.ErrDuplicate, u.AuthCode)
		}
	}
	return nil
}

func (s *Store) stampUsersLocked(room *persistence.Room, now time.Time) {
	for i := range room.Users {
		u := &room.Users[i]
		if u.ID == 0 {
			s.nextUserID++
			u.ID = s.nextUserID
		}
		if u.CreatedOn.IsZero() {
			u.CreatedOn = now
		}
		u.ModifiedOn = now
		u.RoomID = room.ID
	}
}

func (s *Store) storeLocked(room persistence.Room) {
	s.rooms[room.ID] = room
	s.byInvite[room.InvitationCode] = room.ID
	for _, u := range room.Users {
		s.byAuthCode[u.AuthCode] = room.ID
	}
}

func cloneRoom(room persistence.Room) persistence.Room {
	out := room
	if room.ClosedOn != nil {
		closed := *room.ClosedOn
		out.ClosedOn = &closed
	}
	out.Users = make([]persistence.User, len(room.Users))
	for i, u := range room.Users {
		out.Users[i] = cloneUser(u)
	}
	return out
}

func cloneUser(user persistence.User) persistence.User {
	out := user
	if user.GiftRecipientUserID != nil {
		id := *user.GiftRecipientUserID
		out.GiftRecipientUserID = &id
	}
	if user.Wishes != nil {
		out.Wishes = append([]persistence.Wish(nil), user.Wishes...)
	}
	return out
}
