package domain

// User represents a portal account. Users are created on first login and
// never deleted; TeamID is set once the user creates or joins a team.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	TeamID   string `json:"teamId,omitempty"`
}
