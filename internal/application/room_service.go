package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/secret-nick/internal/domain"
)

// RoomService opens rooms, changes their details and runs the draw.
type RoomService struct {
	rooms     RoomRepository
	codes     func() string
	now       func() time.Time
	newRandom func() domain.RandomSource
	limits    RoomLimits
	logger    *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, codes func() string, now func() time.Time, limits RoomLimits) *RoomService {
	return NewRoomServiceWithLogger(rooms, codes, now, limits, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, codes func() string, now func() time.Time, limits RoomLimits, logger *slog.Logger) *RoomService {
	if codes == nil {
		codes = NewCodeGenerator()
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:     rooms,
		codes:     codes,
		now:       now,
		newRandom: func() domain.RandomSource { return nil },
		limits:    limits,
		logger:    defaultLogger(logger),
	}
}

// WithRandom sets the source used for each draw. Tests pass a seeded or scripted source.
func (s *RoomService) WithRandom(newRandom func() domain.RandomSource) *RoomService {
	if newRandom != nil {
		s.newRandom = newRandom
	}
	return s
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom opens a room with the caller as its admin.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (result CreateRoomResult, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", result.Room.ID()).InfoContext(ctx, "room created")
	}()

	now := s.now()
	var room *domain.Room
	room, err = domain.NewRoom(domain.CreateRoomParams{
		InvitationCode:    s.codes(),
		Name:              params.Room.Name,
		Description:       params.Room.Description,
		InvitationNote:    params.Room.InvitationNote,
		GiftExchangeDate:  params.Room.GiftExchangeDate,
		GiftMaximumBudget: params.Room.GiftMaximumBudget,
		MinUsersLimit:     s.limits.MinUsers,
		MaxUsersLimit:     s.limits.MaxUsers,
		MaxWishesLimit:    s.limits.MaxWishes,
		Admin:             params.Admin.toUser(s.codes()),
		Now:               now,
	})
	if err != nil {
		return
	}

	var stored *domain.Room
	stored, err = s.rooms.Add(ctx, room)
	if err != nil {
		err = persistFailure(err)
		return
	}

	admin, ok := stored.Admin()
	if !ok {
		err = domain.Internal(fmt.Errorf("room %d was stored without an admin", stored.ID()))
		return
	}
	result = CreateRoomResult{Room: stored, UserCode: admin.AuthCode}
	return
}

// GetRoomByUserCode returns the room of the user authenticated by userCode.
func (s *RoomService) GetRoomByUserCode(ctx context.Context, userCode string) (*domain.Room, error) {
	if err := requireUserCode(userCode); err != nil {
		return nil, err
	}
	return s.loadByUserCode(ctx, userCode)
}

// GetRoomByInvitationCode returns the room a new participant would join.
func (s *RoomService) GetRoomByInvitationCode(ctx context.Context, invitationCode string) (*domain.Room, error) {
	if invitationCode == "" {
		return nil, domain.BadRequest(fieldRoomCode, "Room code is required.")
	}
	room, err := s.rooms.GetByInvitationCode(ctx, invitationCode)
	if err != nil {
		return nil, loadFailure(err, domain.NotFound(fieldRoomCode, "Room with the specified RoomCode was not found."))
	}
	return room, nil
}

// UpdateRoom applies patch through the room setters. The first failing field
// aborts the update and nothing is stored.
func (s *RoomService) UpdateRoom(ctx context.Context, userCode string, patch RoomPatch) (room *domain.Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID()).InfoContext(ctx, "room updated")
	}()

	var current *domain.Room
	current, err = s.loadForAdmin(ctx, userCode)
	if err != nil {
		return
	}

	if err = applyPatch(current, patch); err != nil {
		return
	}

	if _, err = s.rooms.Update(ctx, current); err != nil {
		err = persistFailure(err)
		return
	}
	room, err = s.loadByUserCode(ctx, userCode)
	return
}

// DrawRoom pairs every participant with a gift recipient and closes the room.
func (s *RoomService) DrawRoom(ctx context.Context, userCode string) (room *domain.Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DrawRoom")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to draw room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID(), "user_count", room.UserCount()).InfoContext(ctx, "room drawn")
	}()

	var current *domain.Room
	current, err = s.loadForAdmin(ctx, userCode)
	if err != nil {
		return
	}

	if err = current.Draw(s.newRandom(), s.now()); err != nil {
		return
	}

	if _, err = s.rooms.Update(ctx, current); err != nil {
		err = persistFailure(err)
		return
	}
	room, err = s.loadByUserCode(ctx, userCode)
	return
}

func (s *RoomService) loadByUserCode(ctx context.Context, userCode string) (*domain.Room, error) {
	room, err := s.rooms.GetByUserCode(ctx, userCode)
	if err != nil {
		return nil, loadFailure(err, domain.NotFound(fieldUserCode, "User with the specified UserCode was not found."))
	}
	return room, nil
}

func (s *RoomService) loadForAdmin(ctx context.Context, userCode string) (*domain.Room, error) {
	if err := requireUserCode(userCode); err != nil {
		return nil, err
	}
	room, err := s.loadByUserCode(ctx, userCode)
	if err != nil {
		return nil, err
	}
	actor, ok := room.FindUserByCode(userCode)
	if !ok {
		return nil, domain.NotFound(domain.FieldUserCode, "User with the specified UserCode was not found in the room.")
	}
	if !actor.IsAdmin {
		return nil, domain.Forbidden(domain.FieldUserIsAdmin, "This user is not the admin.")
	}
	return room, nil
}

func applyPatch(room *domain.Room, patch RoomPatch) error {
	if patch.Name != nil {
		if err := room.SetName(*patch.Name); err != nil {
			return err
		}
	}
	if patch.Description != nil {
		if err := room.SetDescription(*patch.Description); err != nil {
			return err
		}
	}
	if patch.InvitationNote != nil {
		if err := room.SetInvitationNote(*patch.InvitationNote); err != nil {
			return err
		}
	}
	if patch.GiftExchangeDate != nil {
		if err := room.SetGiftExchangeDate(*patch.GiftExchangeDate); err != nil {
			return err
		}
	}
	if patch.GiftMaximumBudget != nil {
		if err := room.SetGiftMaximumBudget(*patch.GiftMaximumBudget); err != nil {
			return err
		}
	}
	return nil
}
