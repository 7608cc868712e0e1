package persistence

import "context"

// RoomRepository stores rooms as a unit: a room row and all of its users and wishes.
type RoomRepository interface {
	// CreateRoom inserts the room and its users, returning them with assigned ids and version 1.
	CreateRoom(ctx context.Context, room Room) (Room, error)
	// UpdateRoom replaces the stored room when room.Version matches the stored
	// version, returning ErrVersionConflict otherwise.
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id uint64) (Room, error)
	GetRoomByInvitationCode(ctx context.Context, code string) (Room, error)
	GetRoomByUserCode(ctx context.Context, code string) (Room, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
