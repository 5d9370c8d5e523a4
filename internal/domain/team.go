package domain

import "time"

// Role of a team member. Exactly one Leader exists per team, assigned to the
// creator; everyone added afterwards is a Member.
type Role string

const (
	RoleLeader Role = "Leader"
	RoleMember Role = "Member"
)

// TeamMember is embedded in Team. The id matches the creator's user id for
// the Leader entry and is generated independently for invited members.
type TeamMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Team groups members around shared submissions and redirect links.
// Members keep insertion order, Leader first.
type Team struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	OwnerID   string       `json:"ownerId"`
	Members   []TeamMember `json:"members"`
	CreatedAt time.Time    `json:"createdAt"`
}
