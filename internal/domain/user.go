package domain

import "time"

// User is the internal account record linking an external identity to a role.
type User struct {
	ID        string
	Email     string
	Role      Role
	SubjectID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingSubjectPrefix marks subject ids assigned to accounts provisioned
// before their owner's first login.
const PendingSubjectPrefix = "pending_"
