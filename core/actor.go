package core

// Roles. Each user resolves to exactly one.
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
)

// Actor identifies the authenticated principal issuing a core operation.
// It is threaded explicitly through every service call; the core never reads
// ambient request state.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool      { return a.Role == RoleAdmin }
func (a Actor) IsInstructor() bool { return a.Role == RoleInstructor }
func (a Actor) IsZero() bool       { return a.ID == "" }
