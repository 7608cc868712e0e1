package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/secret-nick/internal/domain"
	"github.com/example/secret-nick/internal/persistence"
	"github.com/example/secret-nick/internal/testfixtures"
)

func adminAndGuests(guests int) []domain.User {
	users := []domain.User{testfixtures.NewUser(testfixtures.AsAdmin(), testfixtures.WithAuthCode("admin-code"))}
	for i := 0; i < guests; i++ {
		users = append(users, testfixtures.NewUser())
	}
	return users
}

func requireFailure(t *testing.T, err error, kind domain.Kind, field string) *domain.Failure {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s failure, got nil", kind)
	}
	f := domain.AsFailure(err)
	if f.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, f.Kind, err)
	}
	if len(f.Errors) == 0 || f.Errors[0].Field != field {
		t.Fatalf("expected field %q, got %+v", field, f.Errors)
	}
	return f
}

func newRoomServiceForTest(repo RoomRepository) *RoomService {
	clock := testfixtures.NewClock(time.Time{})
	codes := testfixtures.NewCodeGenerator("code")
	return NewRoomService(repo, codes.NextFunc(), clock.NowFunc(), RoomLimits{MinUsers: 3, MaxUsers: 5, MaxWishes: 2})
}

func validCreateParams() CreateRoomParams {
	return CreateRoomParams{
		Room: RoomDetails{
			Name:              "Office party",
			Description:       "Third floor",
			GiftExchangeDate:  time.Date(2025, 12, 20, 18, 30, 0, 0, time.UTC),
			GiftMaximumBudget: 1000,
		},
		Admin: UserDetails{
			FirstName:    "Olena",
			LastName:     "Koval",
			Phone:        "+380501234567",
			DeliveryInfo: "Kyiv",
			WishList:     []domain.Wish{{Name: "Book"}},
		},
	}
}

func TestRoomService_CreateRoom(t *testing.T) {
	t.Run("opens a room with the caller as admin", func(t *testing.T) {
		repo := newRoomRepoStub()
		svc := newRoomServiceForTest(repo)

		result, err := svc.CreateRoom(context.Background(), validCreateParams())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.UserCode != "code-2" {
			t.Errorf("expected admin code code-2, got %q", result.UserCode)
		}
		room := result.Room
		if room.ID() == 0 || room.InvitationCode() != "code-1" {
			t.Errorf("unexpected room id %d / invitation %q", room.ID(), room.InvitationCode())
		}
		if room.MinUsersLimit() != 3 || room.MaxUsersLimit() != 5 || room.MaxWishesLimit() != 2 {
			t.Errorf("configured limits not applied: %d/%d/%d", room.MinUsersLimit(), room.MaxUsersLimit(), room.MaxWishesLimit())
		}
		if want := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC); !room.GiftExchangeDate().Equal(want) {
			t.Errorf("expected date only, got %v", room.GiftExchangeDate())
		}
		admin, ok := room.Admin()
		if !ok || admin.AuthCode != "code-2" || admin.ID == 0 {
			t.Errorf("unexpected admin %+v", admin)
		}
	})

	t.Run("rejects invalid details without storing", func(t *testing.T) {
		repo := newRoomRepoStub()
		svc := newRoomServiceForTest(repo)

		params := validCreateParams()
		params.Room.Name = ""
		_, err := svc.CreateRoom(context.Background(), params)
		requireFailure(t, err, domain.KindBadRequest, domain.FieldName)
		if len(repo.rooms) != 0 {
			t.Error("expected nothing to be stored")
		}
	})

	t.Run("reports storage failures as bad requests", func(t *testing.T) {
		repo := newRoomRepoStub()
		repo.addErr = persistence.ErrDuplicate
		svc := newRoomServiceForTest(repo)

		_, err := svc.CreateRoom(context.Background(), validCreateParams())
		f := requireFailure(t, err, domain.KindBadRequest, "")
		if f.Message() != persistence.ErrDuplicate.Error() {
			t.Errorf("expected repository message, got %q", f.Message())
		}
	})
}

func TestRoomService_GetRoom(t *testing.T) {
	room := testfixtures.NewRoom(t, testfixtures.WithUsers(adminAndGuests(1)...), testfixtures.WithInvitationCode("invite-xyz"))
	svc := newRoomServiceForTest(newRoomRepoStub(room))
	ctx := context.Background()

	if _, err := svc.GetRoomByUserCode(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.GetRoomByUserCode(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	got, err := svc.GetRoomByUserCode(ctx, "admin-code")
	if err != nil || got.ID() != room.ID() {
		t.Fatalf("expected room %d, got %v (%v)", room.ID(), got, err)
	}

	if _, err := svc.GetRoomByInvitationCode(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetRoomByInvitationCode(ctx, ""); domain.KindOf(err) != domain.KindBadRequest {
		t.Errorf("expected bad request, got %v", err)
	}
	if got, err := svc.GetRoomByInvitationCode(ctx, "invite-xyz"); err != nil || got.ID() != room.ID() {
		t.Errorf("expected room by invitation code, got %v (%v)", got, err)
	}
}

func TestRoomService_UpdateRoom(t *testing.T) {
	ctx := context.Background()
	name := "New year party"
	budget := uint64(2000)

	t.Run("applies present fields only", func(t *testing.T) {
		users := adminAndGuests(1)
		room := testfixtures.NewRoom(t, testfixtures.WithUsers(users...))
		repo := newRoomRepoStub(room)
		svc := newRoomServiceForTest(repo)

		updated, err := svc.UpdateRoom(ctx, "admin-code", RoomPatch{Name: &name, GiftMaximumBudget: &budget})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Name() != name || updated.GiftMaximumBudget() != budget {
			t.Errorf("patch not applied: %q %d", updated.Name(), updated.GiftMaximumBudget())
		}
		if updated.Description() != room.Description() {
			t.Errorf("description should be unchanged, got %q", updated.Description())
		}
		if updated.Version() != room.Version()+1 {
			t.Errorf("expected version bump, got %d", updated.Version())
		}
	})

	t.Run("only the admin may update", func(t *testing.T) {
		users := adminAndGuests(1)
		room := testfixtures.NewRoom(t, testfixtures.WithUsers(users...))
		svc := newRoomServiceForTest(newRoomRepoStub(room))

		_, err := svc.UpdateRoom(ctx, users[1].AuthCode, RoomPatch{Name: &name})
		requireFailure(t, err, domain.KindForbidden, domain.FieldUserIsAdmin)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden to match")
		}
	})

	t.Run("first invalid field aborts without storing", func(t *testing.T) {
		room := testfixtures.NewRoom(t, testfixtures.WithUsers(adminAndGuests(0)...))
		repo := newRoomRepoStub(room)
		svc := newRoomServiceForTest(repo)

		long := strings.Repeat("x", domain.NameCharLimit+1)
		_, err := svc.UpdateRoom(ctx, "admin-code", RoomPatch{Name: &long, GiftMaximumBudget: &budget})
		requireFailure(t, err, domain.KindBadRequest, domain.FieldName)
		if repo.updates != 0 {
			t.Errorf("expected no writes, got %d", repo.updates)
		}
		if repo.snapshot(room.ID()).GiftMaximumBudget != room.GiftMaximumBudget() {
			t.Error("budget should not change when an earlier field fails")
		}
	})

	t.Run("closed rooms cannot change", func(t *testing.T) {
		room := testfixtures.NewRoom(t, testfixtures.WithUsers(adminAndGuests(0)...), testfixtures.WithClosedOn(testfixtures.ReferenceTime()))
		svc := newRoomServiceForTest(newRoomRepoStub(room))

		_, err := svc.UpdateRoom(ctx, "admin-code", RoomPatch{Name: &name})
		f := requireFailure(t, err, domain.KindBadRequest, domain.FieldRoomClosedOn)
		if f.Message() != "Room is already closed." {
			t.Errorf("unexpected message %q", f.Message())
		}
	})

	t.Run("concurrent change is reported as a conflict", func(t *testing.T) {
		room := testfixtures.NewRoom(t, testfixtures.WithUsers(adminAndGuests(0)...))
		repo := newRoomRepoStub(room)
		repo.updateErr = persistence.ErrVersionConflict
		svc := newRoomServiceForTest(repo)

		_, err := svc.UpdateRoom(ctx, "admin-code", RoomPatch{Name: &name})
		requireFailure(t, err, domain.KindBadRequest, "")
		if !errors.Is(err, ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
		if ErrorKind(err) != "conflict" {
			t.Errorf("expected conflict label, got %q", ErrorKind(err))
		}
	})
}

func TestRoomService_DrawRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns recipients and closes the room", func(t *testing.T) {
		users := adminAndGuests(3)
		room := testfixtures.NewRoom(t, testfixtures.WithUsers(users...))
		clock := testfixtures.NewClock(time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC))
		svc := NewRoomService(newRoomRepoStub(room), nil, clock.NowFunc(), DefaultRoomLimits()).
			WithRandom(func() domain.RandomSource { return testfixtures.SeededRandom(7) })

		drawn, err := svc.DrawRoom(ctx, "admin-code")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		closed, ok := drawn.ClosedOn()
		if !ok || !closed.Equal(clock.Now()) {
			t.Errorf("expected room closed at %v, got %v", clock.Now(), closed)
		}
		seen := make(map[uint64]bool)
		for _, u := range drawn.Users() {
			if u.GiftRecipientUserID == nil {
				t.Fatalf("user %d has no recipient", u.ID)
			}
			if *u.GiftRecipientUserID == u.ID {
				t.Errorf("user %d drew themselves", u.ID)
			}
			seen[*u.GiftRecipientUserID] = true
		}
		if len(seen) != len(users) {
			t.Errorf("expected a permutation, got %v", seen)
		}
	})

	t.Run("needs the minimum number of users", func(t *testing.T) {
		room := testfixtures.NewRoom(t, testfixtures.WithUsers(adminAndGuests(1)...))
		repo := newRoomRepoStub(room)
		svc := newRoomServiceForTest(repo)

		_, err := svc.DrawRoom(ctx, "admin-code")
		requireFailure(t, err, domain.KindBadRequest, domain.FieldRoomMinUsersLimit)
		if repo.snapshot(room.ID()).ClosedOn != nil {
			t.Error("room should stay open")
		}
	})

	t.Run("only the admin may draw", func(t *testing.T) {
		users := adminAndGuests(3)
		room := testfixtures.NewRoom(t, testfixtures.WithUsers(users...))
		svc := newRoomServiceForTest(newRoomRepoStub(room))

		_, err := svc.DrawRoom(ctx, users[2].AuthCode)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("missing user code", func(t *testing.T) {
		svc := newRoomServiceForTest(newRoomRepoStub())
		_, err := svc.DrawRoom(ctx, "")
		requireFailure(t, err, domain.KindUnauthorized, "userCode")
	})
}
