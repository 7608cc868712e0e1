package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/secret-nick/internal/application"
	"github.com/example/secret-nick/internal/domain"
)

const (
	queryUserCode = "userCode"
	queryRoomCode = "roomCode"

	msgMalformedBody = "The request body is not valid JSON."
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.CreateRoomResult, error)
	GetRoomByUserCode(ctx context.Context, userCode string) (*domain.Room, error)
	GetRoomByInvitationCode(ctx context.Context, invitationCode string) (*domain.Room, error)
	UpdateRoom(ctx context.Context, userCode string, patch application.RoomPatch) (*domain.Room, error)
	DrawRoom(ctx context.Context, userCode string) (*domain.Room, error)
}

type RoomHandler struct {
	service   roomService
	responder responder
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), validate: newValidator(), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.badRequest(r.Context(), w, "", msgMalformedBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "validation").WarnContext(r.Context(), "room request rejected", "error", err)
		h.responder.writeProblem(r.Context(), w, http.StatusBadRequest, validationErrors(err))
		return
	}

	logger := h.log(r.Context(), "Create")
	result, err := h.service.CreateRoom(r.Context(), req.toParams())
	if err != nil {
		logger.ErrorContext(r.Context(), "room creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	RecordRoomEvent("room_created")
	logger.With("room_id", result.Room.ID()).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createRoomResponse{
		Room:     toRoomDTO(result.Room),
		UserCode: result.UserCode,
	})
}

// Get looks the room up by invitation code when roomCode is given, otherwise by the caller's code.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	var (
		room *domain.Room
		err  error
	)
	if query.Has(queryRoomCode) {
		room, err = h.service.GetRoomByInvitationCode(r.Context(), strings.TrimSpace(query.Get(queryRoomCode)))
	} else {
		room, err = h.service.GetRoomByUserCode(r.Context(), strings.TrimSpace(query.Get(queryUserCode)))
	}
	if err != nil {
		h.log(r.Context(), "Get").InfoContext(r.Context(), "room lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req updateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode room patch", "error", err)
		h.responder.badRequest(r.Context(), w, "", msgMalformedBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.responder.writeProblem(r.Context(), w, http.StatusBadRequest, validationErrors(err))
		return
	}

	logger := h.log(r.Context(), "Update")
	room, err := h.service.UpdateRoom(r.Context(), strings.TrimSpace(r.URL.Query().Get(queryUserCode)), req.toPatch())
	if err != nil {
		logger.ErrorContext(r.Context(), "room update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	RecordRoomEvent("room_updated")
	logger.With("room_id", room.ID()).InfoContext(r.Context(), "room updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

func (h *RoomHandler) Draw(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Draw")
	room, err := h.service.DrawRoom(r.Context(), strings.TrimSpace(r.URL.Query().Get(queryUserCode)))
	if err != nil {
		logger.ErrorContext(r.Context(), "draw failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	RecordRoomEvent("room_drawn")
	logger.With("room_id", room.ID(), "participants", room.UserCount()).InfoContext(r.Context(), "draw completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}
