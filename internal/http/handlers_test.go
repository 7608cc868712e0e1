package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/secret-nick/internal/application"
	"github.com/example/secret-nick/internal/domain"
	"github.com/example/secret-nick/internal/persistence"
	"github.com/example/secret-nick/internal/persistence/memory"
	"github.com/example/secret-nick/internal/testfixtures"
)

type apiFixture struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T, mutate ...func(*RouterConfig)) *apiFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	codes := testfixtures.NewCodeGenerator("code")
	store := memory.New(clock.NowFunc())
	rooms := persistence.NewDomainRooms(store)

	roomService := application.NewRoomServiceWithLogger(rooms, codes.NextFunc(), clock.NowFunc(), application.DefaultRoomLimits(), logger).
		WithRandom(func() domain.RandomSource { return testfixtures.SeededRandom(7) })
	userService := application.NewUserServiceWithLogger(rooms, codes.NextFunc(), logger)

	cfg := RouterConfig{
		Rooms:  NewRoomHandler(roomService, logger),
		Users:  NewUserHandler(userService, logger),
		Health: NewHealthHandler(store, logger),
		Logger: logger,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return &apiFixture{t: t, router: NewRouter(cfg)}
}

func (a *apiFixture) do(method, target string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func person(first string) map[string]any {
	return map[string]any{
		"firstName":    first,
		"lastName":     "Tester",
		"phone":        "+380501234567",
		"email":        first + "@example.com",
		"deliveryInfo": "Kyiv, Nova Poshta #1",
		"wishList":     []map[string]string{{"name": "Book", "infoLink": "https://example.com/book"}},
	}
}

func createRoomBody() map[string]any {
	return map[string]any{
		"room": map[string]any{
			"name":              "Office party",
			"description":       "Team exchange",
			"giftExchangeDate":  "2025-12-24",
			"giftMaximumBudget": 500,
		},
		"adminUser": person("Ada"),
	}
}

func (a *apiFixture) createRoom() createRoomResponse {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/rooms", createRoomBody())
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[createRoomResponse](a.t, rec)
}

func (a *apiFixture) join(invitation, first string) userDTO {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/users?roomCode="+invitation, person(first))
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[userDTO](a.t, rec)
}

func TestRoomHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create returns the room and the admin code", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		created := api.createRoom()

		assert.NotEmpty(t, created.UserCode)
		assert.NotZero(t, created.Room.ID)
		assert.NotZero(t, created.Room.AdminID)
		assert.Equal(t, "2025-12-24", created.Room.GiftExchangeDate)
		assert.Equal(t, uint64(500), created.Room.GiftMaximumBudget)
		assert.Nil(t, created.Room.ClosedOn)
		assert.False(t, created.Room.IsFull)
	})

	t.Run("get by invitation or user code", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		created := api.createRoom()

		rec := api.do(http.MethodGet, "/api/rooms?roomCode="+created.Room.InvitationCode, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, created.Room.ID, decode[roomDTO](t, rec).ID)

		rec = api.do(http.MethodGet, "/api/rooms?userCode="+created.UserCode, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, created.Room.Name, decode[roomDTO](t, rec).Name)

		rec = api.do(http.MethodGet, "/api/rooms?roomCode=nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = api.do(http.MethodGet, "/api/rooms", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decode[problem](t, rec)
		assert.Equal(t, []string{"User code is required."}, body.Errors["userCode"])
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		rec := api.do(http.MethodPost, "/api/rooms", "{")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[problem](t, rec)
		assert.Equal(t, problemTitle, body.Title)
		assert.Equal(t, http.StatusBadRequest, body.Status)
		assert.Equal(t, []string{msgMalformedBody}, body.Errors[""])
	})

	t.Run("request validation reports json field paths", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		body := createRoomBody()
		body["room"].(map[string]any)["name"] = ""
		body["room"].(map[string]any)["giftExchangeDate"] = "next friday"

		rec := api.do(http.MethodPost, "/api/rooms", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		errs := decode[problem](t, rec).Errors
		assert.Contains(t, errs, "room.name")
		assert.Contains(t, errs, "room.giftExchangeDate")
	})

	t.Run("update is limited to the admin", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		created := api.createRoom()
		guest := api.join(created.Room.InvitationCode, "Bob")

		rec := api.do(http.MethodPatch, "/api/rooms?userCode="+guest.UserCode, map[string]any{"name": "Hijacked"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = api.do(http.MethodPatch, "/api/rooms?userCode="+created.UserCode, map[string]any{"name": "Renamed", "giftMaximumBudget": 750})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		room := decode[roomDTO](t, rec)
		assert.Equal(t, "Renamed", room.Name)
		assert.Equal(t, uint64(750), room.GiftMaximumBudget)
		assert.Equal(t, "Team exchange", room.Description)

		rec = api.do(http.MethodPatch, "/api/rooms?userCode="+created.UserCode, map[string]any{"giftMaximumBudget": 200000})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[problem](t, rec).Errors, "giftMaximumBudget")
	})

	t.Run("draw closes the room", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		created := api.createRoom()
		invite := created.Room.InvitationCode

		rec := api.do(http.MethodPost, "/api/rooms/draw?userCode="+created.UserCode, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		api.join(invite, "Bob")
		api.join(invite, "Cat")
		rec = api.do(http.MethodPost, "/api/rooms/draw?userCode="+created.UserCode, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotNil(t, decode[roomDTO](t, rec).ClosedOn)

		rec = api.do(http.MethodPost, "/api/rooms/draw?userCode="+created.UserCode, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserHandlers(t *testing.T) {
	t.Parallel()

	t.Run("join returns the new participant with its code", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		created := api.createRoom()
		guest := api.join(created.Room.InvitationCode, "Bob")

		assert.NotZero(t, guest.ID)
		assert.NotEmpty(t, guest.UserCode)
		assert.False(t, guest.IsAdmin)
		assert.Nil(t, guest.GiftToUserID)
		require.NotNil(t, guest.Phone)
		assert.Equal(t, created.Room.ID, guest.RoomID)
	})

	t.Run("join with unknown invitation is not found", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		rec := api.do(http.MethodPost, "/api/users?roomCode=missing", person("Bob"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("listing hides other participants' details", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		created := api.createRoom()
		bob := api.join(created.Room.InvitationCode, "Bob")
		api.join(created.Room.InvitationCode, "Cat")

		rec := api.do(http.MethodGet, "/api/users?userCode="+bob.UserCode, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		users := decode[[]userDTO](t, rec)
		require.Len(t, users, 3)
		for _, u := range users {
			if u.ID == bob.ID {
				assert.Equal(t, bob.UserCode, u.UserCode)
				assert.NotNil(t, u.Phone)
				continue
			}
			assert.Empty(t, u.UserCode)
			assert.Nil(t, u.Phone)
			assert.Nil(t, u.WishList)
		}

		rec = api.do(http.MethodGet, "/api/users?userCode="+created.UserCode, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		for _, u := range decode[[]userDTO](t, rec) {
			assert.NotEmpty(t, u.UserCode)
			assert.NotNil(t, u.Phone)
		}
	})

	t.Run("after the draw a giver sees only its recipient", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		created := api.createRoom()
		bob := api.join(created.Room.InvitationCode, "Bob")
		api.join(created.Room.InvitationCode, "Cat")
		rec := api.do(http.MethodPost, "/api/rooms/draw?userCode="+created.UserCode, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(http.MethodGet, "/api/users?userCode="+bob.UserCode, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var recipient uint64
		for _, u := range decode[[]userDTO](t, rec) {
			if u.ID == bob.ID {
				require.NotNil(t, u.GiftToUserID)
				recipient = *u.GiftToUserID
			} else {
				assert.Nil(t, u.GiftToUserID)
			}
		}
		require.NotZero(t, recipient)
		assert.NotEqual(t, bob.ID, recipient)

		rec = api.do(http.MethodGet, fmt.Sprintf("/api/users/%d?userCode=%s", recipient, bob.UserCode), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		one := decode[[]userDTO](t, rec)
		require.Len(t, one, 1)
		assert.NotNil(t, one[0].Phone)
		assert.NotEmpty(t, one[0].WishList)
	})

	t.Run("delete follows admin rules", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		created := api.createRoom()
		bob := api.join(created.Room.InvitationCode, "Bob")
		cat := api.join(created.Room.InvitationCode, "Cat")

		rec := api.do(http.MethodDelete, fmt.Sprintf("/api/users/%d?userCode=%s", cat.ID, bob.UserCode), nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, []string{"This user is not the admin."}, decode[problem](t, rec).Errors["user.IsAdmin"])

		rec = api.do(http.MethodDelete, fmt.Sprintf("/api/users/%d?userCode=%s", created.Room.AdminID, created.UserCode), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(http.MethodDelete, fmt.Sprintf("/api/users/%d?userCode=%s", cat.ID, created.UserCode), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())

		rec = api.do(http.MethodGet, "/api/users?userCode="+created.UserCode, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]userDTO](t, rec), 2)

		rec = api.do(http.MethodGet, "/api/users?userCode="+cat.UserCode, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid user id is a bad request", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		created := api.createRoom()
		rec := api.do(http.MethodGet, "/api/users/abc?userCode="+created.UserCode, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[problem](t, rec).Errors, "id")
	})
}

func TestRouter(t *testing.T) {
	t.Parallel()

	t.Run("health reports storage", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		rec := api.do(http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, healthResponse{Status: "ok", Storage: "ok"}, decode[healthResponse](t, rec))
	})

	t.Run("metrics endpoint is optional", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/metrics", nil).Code)

		withMetrics := newAPI(t, func(cfg *RouterConfig) { cfg.EnableMetrics = true })
		withMetrics.createRoom()
		rec := withMetrics.do(http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "secretnick_room_events_total")
		assert.Contains(t, rec.Body.String(), "secretnick_http_request_duration_seconds")
	})

	t.Run("room creation is rate limited", func(t *testing.T) {
		t.Parallel()
		limit, err := NewIPRateLimiter("1-M", nil)
		require.NoError(t, err)
		api := newAPI(t, func(cfg *RouterConfig) { cfg.CreateLimit = limit })

		api.createRoom()
		rec := api.do(http.MethodPost, "/api/rooms", createRoomBody())
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, http.StatusTooManyRequests, decode[problem](t, rec).Status)

		rec = api.do(http.MethodGet, "/api/rooms?userCode=unknown", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid rate format is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := NewIPRateLimiter("lots", nil)
		assert.Error(t, err)
	})
}
