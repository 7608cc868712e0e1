package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/secret-nick/internal/persistence"
	"github.com/example/secret-nick/internal/testfixtures"
)

func newRoom(invite, adminCode string) persistence.Room {
	return persistence.Room{
		InvitationCode:    invite,
		Name:              "Team exchange",
		MinUsersLimit:     3,
		MaxUsersLimit:     10,
		MaxWishesLimit:    3,
		GiftExchangeDate:  time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC),
		GiftMaximumBudget: 500,
		Users: []persistence.User{{
			AuthCode:     adminCode,
			IsAdmin:      true,
			FirstName:    "Ada",
			LastName:     "Admin",
			Phone:        "+380501112233",
			DeliveryInfo: "Office",
			Wishes:       []persistence.Wish{{Name: "Socks"}},
		}},
	}
}

func guest(code string) persistence.User {
	return persistence.User{AuthCode: code, FirstName: "Gus", LastName: "Guest", Phone: "1", DeliveryInfo: "Home"}
}

func TestRoomRepositoryContract(t *testing.T) {
	for _, h := range testfixtures.AllStores(t) {
		t.Run(h.Name, func(t *testing.T) {
			ctx := context.Background()
			repo := h.Rooms

			created, err := repo.CreateRoom(ctx, newRoom("invite-a", "admin-a"))
			require.NoError(t, err)
			assert.NotZero(t, created.ID)
			assert.Equal(t, uint64(1), created.Version)
			require.Len(t, created.Users, 1)
			assert.NotZero(t, created.Users[0].ID)
			assert.Equal(t, created.ID, created.Users[0].RoomID)

			byUser, err := repo.GetRoomByUserCode(ctx, "admin-a")
			require.NoError(t, err)
			assert.Equal(t, created.ID, byUser.ID)

			byInvite, err := repo.GetRoomByInvitationCode(ctx, "invite-a")
			require.NoError(t, err)
			assert.Equal(t, "Team exchange", byInvite.Name)
			require.Len(t, byInvite.Users[0].Wishes, 1)

			created.Users = append(created.Users, guest("guest-a1"), guest("guest-a2"))
			joined, err := repo.UpdateRoom(ctx, created)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), joined.Version)
			require.Len(t, joined.Users, 3)

			_, err = repo.UpdateRoom(ctx, created)
			assert.True(t, errors.Is(err, persistence.ErrVersionConflict), "stale write: %v", err)

			removedID := joined.Users[2].ID
			joined.Users = joined.Users[:2]
			trimmed, err := repo.UpdateRoom(ctx, joined)
			require.NoError(t, err)
			assert.Len(t, trimmed.Users, 2)
			for _, u := range trimmed.Users {
				assert.NotEqual(t, removedID, u.ID)
			}
			_, err = repo.GetRoomByUserCode(ctx, "guest-a2")
			assert.ErrorIs(t, err, persistence.ErrNotFound)

			first, second := trimmed.Users[0].ID, trimmed.Users[1].ID
			trimmed.Users[0].GiftRecipientUserID = &second
			trimmed.Users[1].GiftRecipientUserID = &first
			closed := testfixtures.ReferenceTime().Add(time.Hour)
			trimmed.ClosedOn = &closed
			drawn, err := repo.UpdateRoom(ctx, trimmed)
			require.NoError(t, err)
			require.NotNil(t, drawn.ClosedOn)
			assert.True(t, drawn.ClosedOn.Equal(closed))
			require.NotNil(t, drawn.Users[0].GiftRecipientUserID)
			assert.Equal(t, second, *drawn.Users[0].GiftRecipientUserID)
		})
	}
}

func TestRoomRepositoryContract_Uniqueness(t *testing.T) {
	for _, h := range testfixtures.AllStores(t) {
		t.Run(h.Name, func(t *testing.T) {
			ctx := context.Background()
			repo := h.Rooms

			_, err := repo.CreateRoom(ctx, newRoom("invite-a", "admin-a"))
			require.NoError(t, err)

			_, err = repo.CreateRoom(ctx, newRoom("invite-a", "admin-b"))
			assert.ErrorIs(t, err, persistence.ErrDuplicate)

			_, err = repo.CreateRoom(ctx, newRoom("invite-b", "admin-a"))
			assert.ErrorIs(t, err, persistence.ErrDuplicate)

			_, err = repo.GetRoomByInvitationCode(ctx, "invite-b")
			assert.ErrorIs(t, err, persistence.ErrNotFound)
		})
	}
}

func TestRoomRepositoryContract_NotFound(t *testing.T) {
	for _, h := range testfixtures.AllStores(t) {
		t.Run(h.Name, func(t *testing.T) {
			ctx := context.Background()

			_, err := h.Rooms.GetRoom(ctx, 404)
			assert.ErrorIs(t, err, persistence.ErrNotFound)

			missing := newRoom("invite-x", "admin-x")
			missing.ID = 404
			missing.Version = 1
			_, err = h.Rooms.UpdateRoom(ctx, missing)
			assert.ErrorIs(t, err, persistence.ErrNotFound)
		})
	}
}
