package models

// Role is the portal role supplied by the auth/session collaborator
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return true
	}
	return false
}

// Viewer is the authenticated caller of a core operation. It is passed
// explicitly into every operation that depends on who is asking.
type Viewer struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsSupportStaff reports whether the viewer sees support conversations system-wide
func (v Viewer) IsSupportStaff() bool {
	return v.Role == RoleAdmin
}

// DirectoryEntry is one row of the roster collaborator's identifier table
type DirectoryEntry struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Role Role   `json:"role,omitempty" yaml:"role"`
}

// DirectoryMatch is what the search panel shows for a participant
type DirectoryMatch struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role,omitempty"`
}
