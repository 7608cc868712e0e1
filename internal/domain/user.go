package domain

import (
	"strings"
	"time"
)

// Wish is one gift idea on a user's wishlist.
type Wish struct {
	Name     string
	InfoLink string
}

// User is a participant of a room. Users are created and removed only through Room.
type User struct {
	ID         uint64
	CreatedOn  time.Time
	ModifiedOn time.Time
	RoomID     uint64
	AuthCode   string
	IsAdmin    bool

	FirstName    string
	LastName     string
	Phone        string
	Email        string
	DeliveryInfo string
	WantSurprise bool
	Interests    string
	WishList     []Wish

	// GiftRecipientUserID is set by Room.Draw only.
	GiftRecipientUserID *uint64
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasRecipient reports whether the draw assigned a gift recipient to the user.
func (u User) HasRecipient() bool {
	return u.GiftRecipientUserID != nil
}

func (u User) clone() User {
	out := u
	if u.WishList != nil {
		out.WishList = make([]Wish, len(u.WishList))
		copy(out.WishList, u.WishList)
	}
	if u.GiftRecipientUserID != nil {
		id := *u.GiftRecipientUserID
		out.GiftRecipientUserID = &id
	}
	return out
}

func cloneUsers(users []User) []User {
	if users == nil {
		return nil
	}
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = u.clone()
	}
	return out
}
