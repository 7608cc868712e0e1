package application

import (
	"context"
	"time"

	"github.com/example/secret-nick/internal/domain"
)

const (
	fieldUserCode = "userCode"
	fieldRoomCode = "roomCode"
)

// RoomRepository loads and stores whole rooms. Missing rooms are reported with
// persistence.ErrNotFound and stale writes with persistence.ErrVersionConflict.
type RoomRepository interface {
	GetByUserCode(ctx context.Context, userCode string) (*domain.Room, error)
	GetByInvitationCode(ctx context.Context, invitationCode string) (*domain.Room, error)
	GetByID(ctx context.Context, id uint64) (*domain.Room, error)
	Add(ctx context.Context, room *domain.Room) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) (*domain.Room, error)
}

// RoomLimits are the configured capacity limits applied to new rooms.
type RoomLimits struct {
	MinUsers  uint
	MaxUsers  uint
	MaxWishes uint
}

// DefaultRoomLimits returns the limits used when none are configured.
func DefaultRoomLimits() RoomLimits {
	return RoomLimits{MinUsers: 3, MaxUsers: 20, MaxWishes: 5}
}

// RoomDetails are the caller supplied room fields.
type RoomDetails struct {
	Name              string
	Description       string
	InvitationNote    string
	GiftExchangeDate  time.Time
	GiftMaximumBudget uint64
}

// UserDetails are the caller supplied profile fields of a participant.
type UserDetails struct {
	FirstName    string
	LastName     string
	Phone        string
	Email        string
	DeliveryInfo string
	WantSurprise bool
	Interests    string
	WishList     []domain.Wish
}

func (d UserDetails) toUser(authCode string) domain.User {
	return domain.User{
		AuthCode:     authCode,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Phone:        d.Phone,
		Email:        d.Email,
		DeliveryInfo: d.DeliveryInfo,
		WantSurprise: d.WantSurprise,
		Interests:    d.Interests,
		WishList:     append([]domain.Wish(nil), d.WishList...),
	}
}

// CreateRoomParams wraps the data required to open a room.
type CreateRoomParams struct {
	Room  RoomDetails
	Admin UserDetails
}

// CreateRoomResult is a newly stored room and the code its admin authenticates with.
type CreateRoomResult struct {
	Room     *domain.Room
	UserCode string
}

// RoomPatch carries the room fields to change. Nil fields are left as they are.
type RoomPatch struct {
	Name              *string
	Description       *string
	InvitationNote    *string
	GiftExchangeDate  *time.Time
	GiftMaximumBudget *uint64
}

// IsEmpty reports whether the patch changes nothing.
func (p RoomPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.InvitationNote == nil &&
		p.GiftExchangeDate == nil && p.GiftMaximumBudget == nil
}

// UserList is a set of room users as seen by the caller.
type UserList struct {
	Room   *domain.Room
	Caller domain.User
	Users  []domain.User
}
