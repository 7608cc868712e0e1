package persistence

import (
	"context"
	"fmt"

	"github.com/example/secret-nick/internal/domain"
)

// DomainRooms adapts a RoomRepository to the aggregate: rooms are loaded
// through domain.RestoreRoom and written from their snapshots.
type DomainRooms struct {
	repo RoomRepository
}

func NewDomainRooms(repo RoomRepository) *DomainRooms {
	return &DomainRooms{repo: repo}
}

func (d *DomainRooms) GetByUserCode(ctx context.Context, userCode string) (*domain.Room, error) {
	return d.restore(d.repo.GetRoomByUserCode(ctx, userCode))
}

func (d *DomainRooms) GetByInvitationCode(ctx context.Context, invitationCode string) (*domain.Room, error) {
	return d.restore(d.repo.GetRoomByInvitationCode(ctx, invitationCode))
}

func (d *DomainRooms) GetByID(ctx context.Context, id uint64) (*domain.Room, error) {
	return d.restore(d.repo.GetRoom(ctx, id))
}

func (d *DomainRooms) Add(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	return d.restore(d.repo.CreateRoom(ctx, FromSnapshot(room.Snapshot())))
}

func (d *DomainRooms) Update(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	return d.restore(d.repo.UpdateRoom(ctx, FromSnapshot(room.Snapshot())))
}

func (d *DomainRooms) restore(stored Room, err error) (*domain.Room, error) {
	if err != nil {
		return nil, err
	}
	room, err := domain.RestoreRoom(stored.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("restore room %d: %w", stored.ID, err)
	}
	return room, nil
}

// FromSnapshot converts aggregate state into its stored form.
func FromSnapshot(s domain.RoomSnapshot) Room {
	out := Room{
		ID:                s.ID,
		CreatedOn:         s.CreatedOn,
		ModifiedOn:        s.ModifiedOn,
		ClosedOn:          s.ClosedOn,
		InvitationCode:    s.InvitationCode,
		Name:              s.Name,
		Description:       s.Description,
		InvitationNote:    s.InvitationNote,
		MinUsersLimit:     s.MinUsersLimit,
		MaxUsersLimit:     s.MaxUsersLimit,
		MaxWishesLimit:    s.MaxWishesLimit,
		GiftExchangeDate:  s.GiftExchangeDate,
		GiftMaximumBudget: s.GiftMaximumBudget,
		Version:           s.Version,
		Users:             make([]User, 0, len(s.Users)),
	}
	for _, u := range s.Users {
		stored := User{
			ID:                  u.ID,
			RoomID:              u.RoomID,
			CreatedOn:           u.CreatedOn,
			ModifiedOn:          u.ModifiedOn,
			AuthCode:            u.AuthCode,
			IsAdmin:             u.IsAdmin,
			FirstName:           u.FirstName,
			LastName:            u.LastName,
			Phone:               u.Phone,
			Email:               u.Email,
			DeliveryInfo:        u.DeliveryInfo,
			WantSurprise:        u.WantSurprise,
			Interests:           u.Interests,
			GiftRecipientUserID: u.GiftRecipientUserID,
		}
		for _, w := range u.WishList {
			stored.Wishes = append(stored.Wishes, Wish{Name: w.Name, InfoLink: w.InfoLink})
		}
		out.Users = append(out.Users, stored)
	}
	return out
}

// Snapshot converts the stored form back into aggregate state.
func (r Room) Snapshot() domain.RoomSnapshot {
	out := domain.RoomSnapshot{
		ID:                r.ID,
		CreatedOn:         r.CreatedOn,
		ModifiedOn:        r.ModifiedOn,
		ClosedOn:          r.ClosedOn,
		InvitationCode:    r.InvitationCode,
		Name:              r.Name,
		Description:       r.Description,
		InvitationNote:    r.InvitationNote,
		MinUsersLimit:     r.MinUsersLimit,
		MaxUsersLimit:     r.MaxUsersLimit,
		MaxWishesLimit:    r.MaxWishesLimit,
		GiftExchangeDate:  r.GiftExchangeDate,
		GiftMaximumBudget: r.GiftMaximumBudget,
		Version:           r.Version,
		Users:             make([]domain.User, 0, len(r.Users)),
	}
	for _, u := range r.Users {
		user := domain.User{
			ID:                  u.ID,
			CreatedOn:           u.CreatedOn,
			ModifiedOn:          u.ModifiedOn,
			RoomID:              u.RoomID,
			AuthCode:            u.AuthCode,
			IsAdmin:             u.IsAdmin,
			FirstName:           u.FirstName,
			LastName:            u.LastName,
			Phone:               u.Phone,
			Email:               u.Email,
			DeliveryInfo:        u.DeliveryInfo,
			WantSurprise:        u.WantSurprise,
			Interests:           u.Interests,
			GiftRecipientUserID: u.GiftRecipientUserID,
		}
		for _, w := range u.Wishes {
			user.WishList = append(user.WishList, domain.Wish{Name: w.Name, InfoLink: w.InfoLink})
		}
		out.Users = append(out.Users, user)
	}
	return out
}
