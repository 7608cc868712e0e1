package application

import (
	"strings"

	"github.com/google/uuid"
)

// NewCodeGenerator returns a generator of opaque invitation and user codes.
func NewCodeGenerator() func() string {
	return func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
}
