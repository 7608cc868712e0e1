package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/secret-nick/internal/persistence"
)

const (
	timestampLayout = time.RFC3339Nano
	dateLayout      = "2006-01-02"
)

const roomColumns = `r.id, r.created_on, r.modified_on, r.closed_on, r.invitation_code, r.name,
	r.description, r.invitation_note, r.min_users_limit, r.max_users_limit, r.max_wishes_limit,
	r.gift_exchange_date, r.gift_maximum_budget, r.version`

// RoomRepository implements persistence.RoomRepository on SQLite. A room, its
// users and their wishes are always written in a single transaction.
type RoomRepository struct {
	pool  *ConnectionPool
	now   func() time.Time
	retry RetryConfig
}

// NewRoomRepository creates a repository using pool. now stamps created and modified times.
func NewRoomRepository(pool *ConnectionPool, now func() time.Time) *RoomRepository {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RoomRepository{pool: pool, now: now, retry: DefaultRetryConfig()}
}

// CreateRoom inserts room and its users.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	var created persistence.Room
	err := withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			now := r.now()
			if room.CreatedOn.IsZero() {
				room.CreatedOn = now
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO rooms (created_on, modified_on, closed_on, invitation_code, name, description,
					invitation_note, min_users_limit, max_users_limit, max_wishes_limit,
					gift_exchange_date, gift_maximum_budget, version)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
				formatTime(room.CreatedOn),
				formatTime(now),
				formatNullTime(room.ClosedOn),
				room.InvitationCode,
				room.Name,
				room.Description,
				room.InvitationNote,
				room.MinUsersLimit,
				room.MaxUsersLimit,
				room.MaxWishesLimit,
				room.GiftExchangeDate.Format(dateLayout),
				room.GiftMaximumBudget,
			)
			if err != nil {
				return mapError(err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to read room id: %w", err)
			}
			if err := r.writeUsers(ctx, tx, uint64(id), room.Users, now); err != nil {
				return err
			}
			created, err = loadRoom(ctx, tx, "r.id = ?", id)
			return err
		})
	})
	if err != nil {
		return persistence.Room{}, err
	}
	return created, nil
}

// UpdateRoom replaces the stored room when its version matches.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	var updated persistence.Room
	err := withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			now := r.now()
			res, err := tx.ExecContext(ctx, `
				UPDATE rooms
				SET modified_on = ?, closed_on = ?, name = ?, description = ?, invitation_note = ?,
					min_users_limit = ?, max_users_limit = ?, max_wishes_limit = ?,
					gift_exchange_date = ?, gift_maximum_budget = ?, version = version + 1
				WHERE id = ? AND version = ?`,
				formatTime(now),
				formatNullTime(room.ClosedOn),
				room.Name,
				room.Description,
				room.InvitationNote,
				room.MinUsersLimit,
				room.MaxUsersLimit,
				room.MaxWishesLimit,
				room.GiftExchangeDate.Format(dateLayout),
				room.GiftMaximumBudget,
				room.ID,
				room.Version,
			)
			if err != nil {
				return mapError(err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if affected == 0 {
				var exists int
				err := tx.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, room.ID).Scan(&exists)
				if errors.Is(err, sql.ErrNoRows) {
					return persistence.ErrNotFound
				}
				if err != nil {
					return mapError(err)
				}
				return persistence.ErrVersionConflict
			}

			if err := r.deleteRemovedUsers(ctx, tx, room); err != nil {
				return err
			}
			if err := r.writeUsers(ctx, tx, room.ID, room.Users, now); err != nil {
				return err
			}
			updated, err = loadRoom(ctx, tx, "r.id = ?", room.ID)
			return err
		})
	})
	if err != nil {
		return persistence.Room{}, err
	}
	return updated, nil
}

// GetRoom loads a room by id.
func (r *RoomRepository) GetRoom(ctx context.Context, id uint64) (persistence.Room, error) {
	if id == 0 {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return loadRoom(ctx, r.pool.DB(), "r.id = ?", id)
}

// GetRoomByInvitationCode loads the room a new user would join with code.
func (r *RoomRepository) GetRoomByInvitationCode(ctx context.Context, code string) (persistence.Room, error) {
	if code == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return loadRoom(ctx, r.pool.DB(), "r.invitation_code = ?", code)
}

// GetRoomByUserCode loads the room containing the user authenticated by code.
func (r *RoomRepository) GetRoomByUserCode(ctx context.Context, code string) (persistence.Room, error) {
	if code == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return loadRoom(ctx, r.pool.DB(), "r.id = (SELECT u.room_id FROM users u WHERE u.auth_code = ?)", code)
}

func (r *RoomRepository) deleteRemovedUsers(ctx context.Context, tx *sql.Tx, room persistence.Room) error {
	keep := make(map[uint64]bool, len(room.Users))
	for _, u := range room.Users {
		if u.ID != 0 {
			keep[u.ID] = true
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM users WHERE room_id = ?`, room.ID)
	if err != nil {
		return mapError(err)
	}
	var stale []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan user id: %w", err)
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// writeUsers inserts users without an id and updates the rest. Wishes are rewritten in full.
func (r *RoomRepository) writeUsers(ctx context.Context, tx *sql.Tx, roomID uint64, users []persistence.User, now time.Time) error {
	// Recipients are written once every user row exists, since they may point at users inserted later.
	ids := make([]uint64, len(users))
	for i, u := range users {
		created := u.CreatedOn
		if created.IsZero() {
			created = now
		}
		if u.ID == 0 {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO users (room_id, created_on, modified_on, auth_code, is_admin, first_name,
					last_name, phone, email, delivery_info, want_surprise, interests)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				roomID, formatTime(created), formatTime(now), u.AuthCode, u.IsAdmin, u.FirstName,
				u.LastName, u.Phone, u.Email, u.DeliveryInfo, u.WantSurprise, u.Interests,
			)
			if err != nil {
				return mapError(err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to read user id: %w", err)
			}
			ids[i] = uint64(id)
		} else {
			res, err := tx.ExecContext(ctx, `
				UPDATE users
				SET modified_on = ?, is_admin = ?, first_name = ?, last_name = ?, phone = ?, email = ?,
					delivery_info = ?, want_surprise = ?, interests = ?
				WHERE id = ? AND room_id = ?`,
				formatTime(now), u.IsAdmin, u.FirstName, u.LastName, u.Phone, u.Email,
				u.DeliveryInfo, u.WantSurprise, u.Interests, u.ID, roomID,
			)
			if err != nil {
				return mapError(err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: user %d is not stored in room %d", persistence.ErrNotFound, u.ID, roomID)
			}
			ids[i] = u.ID
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM wishes WHERE user_id = ?`, ids[i]); err != nil {
			return mapError(err)
		}
		for pos, w := range u.Wishes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO wishes (user_id, position, name, info_link) VALUES (?, ?, ?, ?)`,
				ids[i], pos, w.Name, w.InfoLink,
			); err != nil {
				return mapError(err)
			}
		}
	}

	for i, u := range users {
		var recipient any
		if u.GiftRecipientUserID != nil {
			recipient = *u.GiftRecipientUserID
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET gift_recipient_user_id = ? WHERE id = ?`, recipient, ids[i],
		); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func loadRoom(ctx context.Context, q querier, where string, arg any) (persistence.Room, error) {
	var (
		room                           persistence.Room
		createdOn, modifiedOn, giftDay string
		closedOn                       sql.NullString
	)
	err := q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE `+where, arg).Scan(
		&room.ID,
		&createdOn,
		&modifiedOn,
		&closedOn,
		&room.InvitationCode,
		&room.Name,
		&room.Description,
		&room.InvitationNote,
		&room.MinUsersLimit,
		&room.MaxUsersLimit,
		&room.MaxWishesLimit,
		&giftDay,
		&room.GiftMaximumBudget,
		&room.Version,
	)
	if err != nil {
		return persistence.Room{}, mapError(err)
	}

	if room.CreatedOn, err = parseTime(createdOn); err != nil {
		return persistence.Room{}, err
	}
	if room.ModifiedOn, err = parseTime(modifiedOn); err != nil {
		return persistence.Room{}, err
	}
	if closedOn.Valid {
		t, err := parseTime(closedOn.String)
		if err != nil {
			return persistence.Room{}, err
		}
		room.ClosedOn = &t
	}
	if room.GiftExchangeDate, err = time.Parse(dateLayout, giftDay); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse gift exchange date: %w", err)
	}

	if room.Users, err = loadUsers(ctx, q, room.ID); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

func loadUsers(ctx context.Context, q querier, roomID uint64) ([]persistence.User, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, room_id, created_on, modified_on, auth_code, is_admin, first_name, last_name,
			phone, email, delivery_info, want_surprise, interests, gift_recipient_user_id
		FROM users
		WHERE room_id = ?
		ORDER BY id`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	index := make(map[uint64]int)
	for rows.Next() {
		var (
			u                     persistence.User
			createdOn, modifiedOn string
			recipient             sql.NullInt64
		)
		if err := rows.Scan(&u.ID, &u.RoomID, &createdOn, &modifiedOn, &u.AuthCode, &u.IsAdmin,
			&u.FirstName, &u.LastName, &u.Phone, &u.Email, &u.DeliveryInfo, &u.WantSurprise,
			&u.Interests, &recipient); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if u.CreatedOn, err = parseTime(createdOn); err != nil {
			return nil, err
		}
		if u.ModifiedOn, err = parseTime(modifiedOn); err != nil {
			return nil, err
		}
		if recipient.Valid {
			id := uint64(recipient.Int64)
			u.GiftRecipientUserID = &id
		}
		index[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return users, nil
	}

	wishRows, err := q.QueryContext(ctx, `
		SELECT w.user_id, w.name, w.info_link
		FROM wishes w
		JOIN users u ON u.id = w.user_id
		WHERE u.room_id = ?
		ORDER BY w.user_id, w.position`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer wishRows.Close()

	for wishRows.Next() {
		var (
			userID uint64
			w      persistence.Wish
		)
		if err := wishRows.Scan(&userID, &w.Name, &w.InfoLink); err != nil {
			return nil, fmt.Errorf("failed to scan wish: %w", err)
		}
		if i, ok := index[userID]; ok {
			users[i].Wishes = append(users[i].Wishes, w)
		}
	}
	return users, wishRows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return t, nil
}
