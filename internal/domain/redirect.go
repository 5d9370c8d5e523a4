package domain

// RedirectLink maps a short keyword to a target URL. Keywords are stored
// lowercase and are unique across the whole registry, not per team. Clicks
// is the only mutable field after creation.
type RedirectLink struct {
	ID      string `json:"id"`
	TeamID  string `json:"teamId"`
	Keyword string `json:"keyword"`
	URL     string `json:"url"`
	Clicks  int    `json:"clicks"`
}
