package application

import (
	"errors"
	"fmt"

	"github.com/example/secret-nick/internal/domain"
	"github.com/example/secret-nick/internal/persistence"
)

var (
	// ErrUnauthorized matches failures raised for a missing or unknown caller code.
	ErrUnauthorized = &domain.Failure{Kind: domain.KindUnauthorized}
	// ErrForbidden matches failures raised when the caller is not the room admin.
	ErrForbidden = &domain.Failure{Kind: domain.KindForbidden}
	// ErrNotFound matches failures raised for a missing room or user.
	ErrNotFound = &domain.Failure{Kind: domain.KindNotFound}
	// ErrConflict is wrapped by failures caused by a concurrent change to the same room.
	ErrConflict = errors.New("application: room was modified by another request")
)

func requireUserCode(code string) error {
	if code == "" {
		return domain.Unauthorized(fieldUserCode, "User code is required.")
	}
	return nil
}

// loadFailure converts a repository read error. Missing records become notFound.
func loadFailure(err error, notFound *domain.Failure) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return notFound
	}
	return domain.AsFailure(err)
}

// persistFailure reports a failed write as a bad request carrying the repository message.
func persistFailure(err error) error {
	if err == nil {
		return nil
	}
	var f *domain.Failure
	if errors.As(err, &f) {
		return f
	}
	cause := err
	if errors.Is(err, persistence.ErrVersionConflict) {
		cause = fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return &domain.Failure{
		Kind:   domain.KindBadRequest,
		Errors: []domain.FieldError{{Field: "", Message: err.Error()}},
		Err:    cause,
	}
}
