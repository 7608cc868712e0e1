package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/secret-nick/internal/domain"
)

// UserService handles participants joining, browsing and leaving rooms.
type UserService struct {
	rooms  RoomRepository
	codes  func() string
	logger *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(rooms RoomRepository, codes func() string) *UserService {
	return NewUserServiceWithLogger(rooms, codes, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(rooms RoomRepository, codes func() string, logger *slog.Logger) *UserService {
	if codes == nil {
		codes = NewCodeGenerator()
	}
	return &UserService{rooms: rooms, codes: codes, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// JoinRoom adds a participant to the room with invitationCode. The returned
// user carries the code it authenticates with from now on.
func (s *UserService) JoinRoom(ctx context.Context, invitationCode string, details UserDetails) (user domain.User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "JoinRoom")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to join room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", user.RoomID, "user_id", user.ID).InfoContext(ctx, "user joined room")
	}()

	if invitationCode == "" {
		err = domain.BadRequest(fieldRoomCode, "Room code is required.")
		return
	}

	var room *domain.Room
	room, err = s.rooms.GetByInvitationCode(ctx, invitationCode)
	if err != nil {
		err = loadFailure(err, domain.NotFound(fieldRoomCode, "Room with the specified RoomCode was not found."))
		return
	}

	var added domain.User
	added, err = room.AddUser(details.toUser(s.codes()))
	if err != nil {
		return
	}

	var stored *domain.Room
	stored, err = s.rooms.Update(ctx, room)
	if err != nil {
		err = persistFailure(err)
		return
	}

	var ok bool
	user, ok = stored.FindUserByCode(added.AuthCode)
	if !ok {
		err = domain.Internal(fmt.Errorf("joined user is missing from room %d", stored.ID()))
	}
	return
}

// ListUsers returns every user of the caller's room.
func (s *UserService) ListUsers(ctx context.Context, userCode string) (UserList, error) {
	room, caller, err := s.loadCaller(ctx, userCode)
	if err != nil {
		return UserList{}, err
	}
	return UserList{Room: room, Caller: caller, Users: room.Users()}, nil
}

// GetUser returns a single user of the caller's room.
func (s *UserService) GetUser(ctx context.Context, userCode string, id uint64) (UserList, error) {
	room, caller, err := s.loadCaller(ctx, userCode)
	if err != nil {
		return UserList{}, err
	}
	target, ok := room.FindUser(id)
	if !ok {
		return UserList{}, domain.NotFound(domain.FieldUserID, "User with the specified Id was not found in the room")
	}
	return UserList{Room: room, Caller: caller, Users: []domain.User{target}}, nil
}

// DeleteUser lets the room admin remove another participant before the draw.
// It returns the room as stored afterwards.
func (s *UserService) DeleteUser(ctx context.Context, userCode string, userID uint64) (room *domain.Room, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DeleteUser", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID()).InfoContext(ctx, "user deleted")
	}()

	if err = requireUserCode(userCode); err != nil {
		return
	}

	var current *domain.Room
	current, err = s.rooms.GetByUserCode(ctx, userCode)
	if err != nil {
		err = loadFailure(err, domain.NotFound(fieldUserCode, "User with the specified UserCode was not found."))
		return
	}

	if current.IsClosed() {
		err = domain.NotFound(domain.FieldRoomClosedOn, "The room is already closed.")
		return
	}

	target, ok := current.FindUser(userID)
	if !ok {
		err = domain.NotFound(domain.FieldUserID, "User with the specified Id was not found in the room")
		return
	}

	actor, ok := current.FindUserByCode(userCode)
	if !ok {
		err = domain.NotFound(domain.FieldUserCode, "User with the specified UserCode was not found in the room.")
		return
	}
	if !actor.IsAdmin {
		err = domain.Forbidden(domain.FieldUserIsAdmin, "This user is not the admin.")
		return
	}
	if actor.RoomID != target.RoomID {
		err = domain.BadRequest(domain.FieldUserRoomID, "This user is not in the same room as UserCode.")
		return
	}
	if actor.ID == target.ID {
		err = domain.BadRequest(domain.FieldUserID, "Admin cannot delete himself in the room.")
		return
	}

	if err = current.DeleteUser(target.ID); err != nil {
		return
	}

	if _, err = s.rooms.Update(ctx, current); err != nil {
		err = persistFailure(err)
		return
	}

	room, err = s.rooms.GetByUserCode(ctx, userCode)
	if err != nil {
		err = loadFailure(err, domain.NotFound(fieldUserCode, "User with the specified UserCode was not found."))
	}
	return
}

func (s *UserService) loadCaller(ctx context.Context, userCode string) (*domain.Room, domain.User, error) {
	if err := requireUserCode(userCode); err != nil {
		return nil, domain.User{}, err
	}
	room, err := s.rooms.GetByUserCode(ctx, userCode)
	if err != nil {
		return nil, domain.User{}, loadFailure(err, domain.NotFound(fieldUserCode, "User with the specified UserCode was not found."))
	}
	caller, ok := room.FindUserByCode(userCode)
	if !ok {
		return nil, domain.User{}, domain.NotFound(domain.FieldUserCode, "User with the specified UserCode was not found in the room.")
	}
	return room, caller, nil
}
