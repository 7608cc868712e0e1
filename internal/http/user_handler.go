package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/example/secret-nick/internal/application"
	"github.com/example/secret-nick/internal/domain"
)

type userService interface {
	JoinRoom(ctx context.Context, invitationCode string, details application.UserDetails) (domain.User, error)
	ListUsers(ctx context.Context, userCode string) (application.UserList, error)
	GetUser(ctx context.Context, userCode string, id uint64) (application.UserList, error)
	DeleteUser(ctx context.Context, userCode string, userID uint64) (*domain.Room, error)
}

type UserHandler struct {
	service   userService
	responder responder
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), validate: newValidator(), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	list, err := h.service.ListUsers(r.Context(), strings.TrimSpace(r.URL.Query().Get(queryUserCode)))
	if err != nil {
		h.log(r.Context(), "List").InfoContext(r.Context(), "user listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTOs(list))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	list, err := h.service.GetUser(r.Context(), strings.TrimSpace(r.URL.Query().Get(queryUserCode)), id)
	if err != nil {
		h.log(r.Context(), "Get", "user_id", id).InfoContext(r.Context(), "user lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTOs(list))
}

// Join adds a participant to the room identified by the roomCode query parameter.
func (h *UserHandler) Join(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Join", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode user request", "error", err)
		h.responder.badRequest(r.Context(), w, "", msgMalformedBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.log(r.Context(), "Join", "error_kind", "validation").WarnContext(r.Context(), "user request rejected", "error", err)
		h.responder.writeProblem(r.Context(), w, http.StatusBadRequest, validationErrors(err))
		return
	}

	logger := h.log(r.Context(), "Join")
	user, err := h.service.JoinRoom(r.Context(), strings.TrimSpace(r.URL.Query().Get(queryRoomCode)), req.toDetails())
	if err != nil {
		logger.ErrorContext(r.Context(), "join failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	RecordRoomEvent("user_joined")
	logger.With("room_id", user.RoomID, "user_id", user.ID).InfoContext(r.Context(), "user joined")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toUserDTO(user, user))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Delete", "user_id", id)
	room, err := h.service.DeleteUser(r.Context(), strings.TrimSpace(r.URL.Query().Get(queryUserCode)), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "user deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	RecordRoomEvent("user_deleted")
	logger.With("room_id", room.ID()).InfoContext(r.Context(), "user deleted")
	w.WriteHeader(http.StatusOK)
}

func (h *UserHandler) userID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		h.responder.badRequest(r.Context(), w, "id", fmt.Sprintf("The value '%s' is not valid.", raw))
		return 0, false
	}
	return id, true
}
