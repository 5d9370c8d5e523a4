package domain

import "time"

// Submission is one row of a team's append-only project history. Attachments
// are carried inline as opaque payloads (base64 in the serialized form), not
// references to external storage.
type Submission struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"teamId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ExternalURL string    `json:"externalUrl"`
	PDF         []byte    `json:"pdf,omitempty"`
	Image       []byte    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
}
