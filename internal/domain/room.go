package domain

import (
	"math/rand/v2"
	"time"
)

// RoomSnapshot is the complete state of a room. It is the shape used to move a
// room in and out of storage.
type RoomSnapshot struct {
	ID             uint64
	CreatedOn      time.Time
	ModifiedOn     time.Time
	ClosedOn       *time.Time
	InvitationCode string

	Name           string
	Description    string
	InvitationNote string

	MinUsersLimit  uint
	MaxUsersLimit  uint
	MaxWishesLimit uint

	GiftExchangeDate  time.Time
	GiftMaximumBudget uint64

	Users []User

	// Version is the optimistic concurrency token assigned by storage.
	Version uint64
}

func (s RoomSnapshot) clone() RoomSnapshot {
	out := s
	if s.ClosedOn != nil {
		closed := *s.ClosedOn
		out.ClosedOn = &closed
	}
	out.Users = cloneUsers(s.Users)
	return out
}

// Room is the aggregate root of a gift exchange. All mutations go through its
// methods, which validate a candidate state and commit it only on success.
type Room struct {
	s RoomSnapshot
}

// RandomSource is the randomness used by Draw. *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// CreateRoomParams holds the values needed to open a new room.
type CreateRoomParams struct {
	InvitationCode    string
	Name              string
	Description       string
	InvitationNote    string
	GiftExchangeDate  time.Time
	GiftMaximumBudget uint64
	MinUsersLimit     uint
	MaxUsersLimit     uint
	MaxWishesLimit    uint
	Admin             User
	Now               time.Time
}

// NewRoom opens a room with its admin as the only user.
func NewRoom(p CreateRoomParams) (*Room, error) {
	admin := p.Admin.clone()
	admin.ID = 0
	admin.IsAdmin = true
	admin.GiftRecipientUserID = nil
	admin.CreatedOn = p.Now
	admin.ModifiedOn = p.Now

	s := RoomSnapshot{
		CreatedOn:         p.Now,
		ModifiedOn:        p.Now,
		InvitationCode:    p.InvitationCode,
		Name:              p.Name,
		Description:       p.Description,
		InvitationNote:    p.InvitationNote,
		MinUsersLimit:     p.MinUsersLimit,
		MaxUsersLimit:     p.MaxUsersLimit,
		MaxWishesLimit:    p.MaxWishesLimit,
		GiftExchangeDate:  dateOnly(p.GiftExchangeDate),
		GiftMaximumBudget: p.GiftMaximumBudget,
		Users:             []User{admin},
	}
	if errs := validateRoom(&s); len(errs) > 0 {
		return nil, ValidationFailure(errs)
	}
	return &Room{s: s}, nil
}

// RestoreRoom rebuilds a room from persisted state, enforcing the single admin
// invariant and the full rule set.
func RestoreRoom(snapshot RoomSnapshot) (*Room, error) {
	s := snapshot.clone()
	errs := validateSingleAdmin(s.Users)
	errs = append(errs, validateRoom(&s)...)
	if len(errs) > 0 {
		return nil, ValidationFailure(errs)
	}
	return &Room{s: s}, nil
}

// Snapshot returns a deep copy of the room state.
func (r *Room) Snapshot() RoomSnapshot {
	return r.s.clone()
}

func (r *Room) ID() uint64                  { return r.s.ID }
func (r *Room) CreatedOn() time.Time        { return r.s.CreatedOn }
func (r *Room) ModifiedOn() time.Time       { return r.s.ModifiedOn }
func (r *Room) InvitationCode() string      { return r.s.InvitationCode }
func (r *Room) Name() string                { return r.s.Name }
func (r *Room) Description() string         { return r.s.Description }
func (r *Room) InvitationNote() string      { return r.s.InvitationNote }
func (r *Room) MinUsersLimit() uint         { return r.s.MinUsersLimit }
func (r *Room) MaxUsersLimit() uint         { return r.s.MaxUsersLimit }
func (r *Room) MaxWishesLimit() uint        { return r.s.MaxWishesLimit }
func (r *Room) GiftExchangeDate() time.Time { return r.s.GiftExchangeDate }
func (r *Room) GiftMaximumBudget() uint64   { return r.s.GiftMaximumBudget }
func (r *Room) Version() uint64             { return r.s.Version }

// ClosedOn returns the closing time and whether the room is closed.
func (r *Room) ClosedOn() (time.Time, bool) {
	if r.s.ClosedOn == nil {
		return time.Time{}, false
	}
	return *r.s.ClosedOn, true
}

// IsClosed reports whether the room reached its terminal state.
func (r *Room) IsClosed() bool {
	return r.s.ClosedOn != nil
}

// IsFull reports whether no more users can join.
func (r *Room) IsFull() bool {
	return uint(len(r.s.Users)) >= r.s.MaxUsersLimit
}

// Users returns a copy of the users in room order.
func (r *Room) Users() []User {
	return cloneUsers(r.s.Users)
}

// UserCount returns the number of users in the room.
func (r *Room) UserCount() int {
	return len(r.s.Users)
}

// FindUser looks a user up by id.
func (r *Room) FindUser(id uint64) (User, bool) {
	for _, u := range r.s.Users {
		if u.ID == id {
			return u.clone(), true
		}
	}
	return User{}, false
}

// FindUserByCode looks a user up by auth code.
func (r *Room) FindUserByCode(code string) (User, bool) {
	if code == "" {
		return User{}, false
	}
	for _, u := range r.s.Users {
		if u.AuthCode == code {
			return u.clone(), true
		}
	}
	return User{}, false
}

// Admin returns the room admin.
func (r *Room) Admin() (User, bool) {
	for _, u := range r.s.Users {
		if u.IsAdmin {
			return u.clone(), true
		}
	}
	return User{}, false
}

func (r *Room) ensureModifiable() error {
	if r.s.ClosedOn != nil {
		return BadRequest(FieldRoomClosedOn, "Room is already closed.")
	}
	return nil
}

// SetName renames the room.
func (r *Room) SetName(value string) error {
	return r.setField(FieldName, func(s *RoomSnapshot) { s.Name = value })
}

// SetDescription replaces the room description.
func (r *Room) SetDescription(value string) error {
	return r.setField(FieldDescription, func(s *RoomSnapshot) { s.Description = value })
}

// SetInvitationNote replaces the note attached to invitations.
func (r *Room) SetInvitationNote(value string) error {
	return r.setField(FieldInvitationNote, func(s *RoomSnapshot) { s.InvitationNote = value })
}

// SetGiftExchangeDate stores the UTC date of value, discarding the time of day.
func (r *Room) SetGiftExchangeDate(value time.Time) error {
	return r.setField(FieldGiftExchangeDate, func(s *RoomSnapshot) { s.GiftExchangeDate = dateOnly(value) })
}

// SetGiftMaximumBudget replaces the budget. Zero means unlimited.
func (r *Room) SetGiftMaximumBudget(value uint64) error {
	return r.setField(FieldGiftMaximumBudget, func(s *RoomSnapshot) { s.GiftMaximumBudget = value })
}

func (r *Room) setField(field string, apply func(*RoomSnapshot)) error {
	if err := r.ensureModifiable(); err != nil {
		return err
	}
	candidate := r.s.clone()
	apply(&candidate)
	if errs := validateRoom(&candidate, field); len(errs) > 0 {
		return ValidationFailure(errs)
	}
	r.s = candidate
	return nil
}

// AddUser appends a non-admin user and revalidates the whole room. On failure
// the room is left untouched.
func (r *Room) AddUser(candidate User) (User, error) {
	if err := r.ensureModifiable(); err != nil {
		return User{}, err
	}

	user := candidate.clone()
	user.ID = 0
	user.RoomID = r.s.ID
	user.IsAdmin = false
	user.GiftRecipientUserID = nil

	next := r.s.clone()
	next.Users = append(next.Users, user)
	if errs := validateRoom(&next); len(errs) > 0 {
		return User{}, ValidationFailure(errs)
	}
	r.s = next
	return user.clone(), nil
}

// DeleteUser removes the user with the given id.
func (r *Room) DeleteUser(id uint64) error {
	if err := r.ensureModifiable(); err != nil {
		return err
	}
	idx := -1
	for i, u := range r.s.Users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NotFound(FieldUserID, "User with the specified Id was not found in the room")
	}

	users := make([]User, 0, len(r.s.Users)-1)
	users = append(users, r.s.Users[:idx]...)
	users = append(users, r.s.Users[idx+1:]...)
	r.s.Users = users
	return nil
}

// Draw assigns every user a gift recipient and closes the room. A nil rng
// falls back to the math/rand/v2 global source.
func (r *Room) Draw(rng RandomSource, now time.Time) error {
	if uint(len(r.s.Users)) < r.s.MinUsersLimit {
		return BadRequest(FieldRoomMinUsersLimit, "Not enough users to draw the room.")
	}
	if err := r.ensureModifiable(); err != nil {
		return err
	}
	if rng == nil {
		rng = globalRandom{}
	}

	ids := shuffleIDs(r.s.Users, rng)
	users := cloneUsers(r.s.Users)
	for i := range users {
		recipient := ids[i]
		users[i].GiftRecipientUserID = &recipient
	}

	closed := now.UTC()
	r.s.Users = users
	r.s.ClosedOn = &closed
	return nil
}

// shuffleIDs swaps every position i with a position drawn from i+1..n-1. The
// result is a single cycle, so for two or more users nobody draws themselves.
func shuffleIDs(users []User, rng RandomSource) []uint64 {
	ids := make([]uint64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	n := len(ids)
	for i := 0; i < n-1; i++ {
		j := i + 1 + rng.IntN(n-1-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
