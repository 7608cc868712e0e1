package testfixtures

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/secret-nick/internal/domain"
)

var userCounter uint64

// UserOption configures a generated user.
type UserOption func(*domain.User)

// NewUser returns a valid participant with a unique id and auth code.
func NewUser(opts ...UserOption) domain.User {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := domain.User{
		ID:           idx,
		CreatedOn:    created,
		ModifiedOn:   created,
		AuthCode:     fmt.Sprintf("user-code-%03d", idx),
		FirstName:    fmt.Sprintf("First%03d", idx),
		LastName:     fmt.Sprintf("Last%03d", idx),
		Phone:        "+380501234567",
		Email:        fmt.Sprintf("user%03d@example.com", idx),
		DeliveryInfo: "Kyiv, Nova Poshta #1",
		WishList:     []domain.Wish{{Name: "Book", InfoLink: "https://example.com/book"}},
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated id.
func WithUserID(id uint64) UserOption {
	return func(u *domain.User) { u.ID = id }
}

// WithAuthCode overrides the generated auth code.
func WithAuthCode(code string) UserOption {
	return func(u *domain.User) { u.AuthCode = code }
}

// AsAdmin marks the user as the room admin.
func AsAdmin() UserOption {
	return func(u *domain.User) { u.IsAdmin = true }
}

// WithUserName overrides first and last name.
func WithUserName(first, last string) UserOption {
	return func(u *domain.User) {
		u.FirstName = first
		u.LastName = last
	}
}

// WithWishes replaces the wish list.
func WithWishes(wishes ...domain.Wish) UserOption {
	return func(u *domain.User) { u.WishList = wishes }
}

// WithSurprise switches the user to a surprise gift with the given interests.
func WithSurprise(interests string) UserOption {
	return func(u *domain.User) {
		u.WantSurprise = true
		u.Interests = interests
		u.WishList = nil
	}
}

// RoomOption configures a generated room snapshot.
type RoomOption func(*domain.RoomSnapshot)

// NewRoomSnapshot returns an open room with an admin and no participants.
func NewRoomSnapshot(opts ...RoomOption) domain.RoomSnapshot {
	s := domain.RoomSnapshot{
		ID:                1,
		CreatedOn:         referenceTime,
		ModifiedOn:        referenceTime,
		InvitationCode:    "invite-001",
		Name:              "Office party",
		Description:       "Gift exchange for the team",
		InvitationNote:    "Join us!",
		MinUsersLimit:     3,
		MaxUsersLimit:     20,
		MaxWishesLimit:    5,
		GiftExchangeDate:  time.Date(2025, time.December, 24, 0, 0, 0, 0, time.UTC),
		GiftMaximumBudget: 1500,
		Version:           1,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if len(s.Users) == 0 {
		s.Users = []domain.User{NewUser(AsAdmin())}
	}
	for i := range s.Users {
		s.Users[i].RoomID = s.ID
	}
	return s
}

// WithRoomID overrides the room id.
func WithRoomID(id uint64) RoomOption {
	return func(s *domain.RoomSnapshot) { s.ID = id }
}

// WithLimits sets the user and wish limits.
func WithLimits(minUsers, maxUsers, maxWishes uint) RoomOption {
	return func(s *domain.RoomSnapshot) {
		s.MinUsersLimit = minUsers
		s.MaxUsersLimit = maxUsers
		s.MaxWishesLimit = maxWishes
	}
}

// WithUsers replaces the users of the room. Exactly one should be an admin.
func WithUsers(users ...domain.User) RoomOption {
	return func(s *domain.RoomSnapshot) { s.Users = users }
}

// WithClosedOn marks the room as drawn at t.
func WithClosedOn(t time.Time) RoomOption {
	return func(s *domain.RoomSnapshot) { s.ClosedOn = &t }
}

// WithInvitationCode overrides the invitation code.
func WithInvitationCode(code string) RoomOption {
	return func(s *domain.RoomSnapshot) { s.InvitationCode = code }
}

// WithVersion overrides the concurrency token.
func WithVersion(v uint64) RoomOption {
	return func(s *domain.RoomSnapshot) { s.Version = v }
}

// NewRoom restores a room from a generated snapshot and fails the test on error.
func NewRoom(tb testing.TB, opts ...RoomOption) *domain.Room {
	tb.Helper()
	room, err := domain.RestoreRoom(NewRoomSnapshot(opts...))
	if err != nil {
		tb.Fatalf("failed to restore room fixture: %v", err)
	}
	return room
}
