package persistence

import "time"

// Room is the stored form of a gift exchange room together with its users.
type Room struct {
	ID                uint64
	CreatedOn         time.Time
	ModifiedOn        time.Time
	ClosedOn          *time.Time
	InvitationCode    string
	Name              string
	Description       string
	InvitationNote    string
	MinUsersLimit     uint
	MaxUsersLimit     uint
	MaxWishesLimit    uint
	GiftExchangeDate  time.Time
	GiftMaximumBudget uint64
	Version           uint64
	Users             []User
}

// User is a stored room participant. Users with a zero ID are inserted on update.
type User struct {
	ID                  uint64
	RoomID              uint64
	CreatedOn           time.Time
	ModifiedOn          time.Time
	AuthCode            string
	IsAdmin             bool
	FirstName           string
	LastName            string
	Phone               string
	Email               string
	DeliveryInfo        string
	WantSurprise        bool
	Interests           string
	GiftRecipientUserID *uint64
	Wishes              []Wish
}

// Wish is a stored wishlist entry, kept in user order.
type Wish struct {
	Name     string
	InfoLink string
}
