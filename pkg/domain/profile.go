package domain

import (
	"time"

	"github.com/google/uuid"
)

// Seeded profiles.
var (
	SuperAdminProfileID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	CitizenProfileID    = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// Profile groups the roles granted to its accounts.
type Profile struct {
	ID        uuid.UUID
	Name      string
	Active    bool
	Roles     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
