package application

import (
	"context"
	"sync"

	"github.com/example/secret-nick/internal/domain"
	"github.com/example/secret-nick/internal/persistence"
)

// roomRepoStub stores snapshots and follows the repository contract, including
// the version check.
type roomRepoStub struct {
	mu         sync.Mutex
	rooms      map[uint64]domain.RoomSnapshot
	nextRoomID uint64
	nextUserID uint64

	addErr    error
	updateErr error
	getErr    error
	updates   int
}

func newRoomRepoStub(rooms ...*domain.Room) *roomRepoStub {
	r := &roomRepoStub{rooms: make(map[uint64]domain.RoomSnapshot), nextUserID: 1000}
	for _, room := range rooms {
		s := room.Snapshot()
		r.rooms[s.ID] = s
		if s.ID > r.nextRoomID {
			r.nextRoomID = s.ID
		}
	}
	return r
}

func (r *roomRepoStub) find(match func(domain.RoomSnapshot) bool) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, s := range r.rooms {
		if match(s) {
			return domain.RestoreRoom(s)
		}
	}
	return nil, persistence.ErrNotFound
}

func (r *roomRepoStub) GetByUserCode(_ context.Context, code string) (*domain.Room, error) {
	return r.find(func(s domain.RoomSnapshot) bool {
		for _, u := range s.Users {
			if u.AuthCode == code {
				return true
			}
		}
		return false
	})
}

func (r *roomRepoStub) GetByInvitationCode(_ context.Context, code string) (*domain.Room, error) {
	return r.find(func(s domain.RoomSnapshot) bool { return s.InvitationCode == code })
}

func (r *roomRepoStub) GetByID(_ context.Context, id uint64) (*domain.Room, error) {
	return r.find(func(s domain.RoomSnapshot) bool { return s.ID == id })
}

func (r *roomRepoStub) Add(_ context.Context, room *domain.Room) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return nil, r.addErr
	}
	r.nextRoomID++
	s := room.Snapshot()
	s.ID = r.nextRoomID
	s.Version = 1
	r.assignUserIDs(&s)
	r.rooms[s.ID] = s
	return domain.RestoreRoom(s)
}

func (r *roomRepoStub) Update(_ context.Context, room *domain.Room) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	current, ok := r.rooms[room.ID()]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	if current.Version != room.Version() {
		return nil, persistence.ErrVersionConflict
	}
	s := room.Snapshot()
	s.Version++
	r.assignUserIDs(&s)
	r.rooms[s.ID] = s
	r.updates++
	return domain.RestoreRoom(s)
}

func (r *roomRepoStub) assignUserIDs(s *domain.RoomSnapshot) {
	for i := range s.Users {
		if s.Users[i].ID == 0 {
			r.nextUserID++
			s.Users[i].ID = r.nextUserID
		}
		s.Users[i].RoomID = s.ID
	}
}

func (r *roomRepoStub) snapshot(id uint64) domain.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[id]
}
