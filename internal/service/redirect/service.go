package redirect

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/hackday/teamportal/internal/domain"
	"github.com/hackday/teamportal/internal/store"
)

// MaxPerTeam caps the number of redirect keywords a single team may hold.
const MaxPerTeam = 10

var (
	// ErrQuotaExceeded reports a team already at its keyword cap. The quota
	// check runs before the uniqueness check so a full team always sees this
	// error, even for a conflicting keyword.
	ErrQuotaExceeded = errors.New("maximum 10 redirects allowed per team")
	// ErrKeywordTaken reports a case-insensitive collision anywhere in the
	// registry. The namespace is global across teams, not per team.
	ErrKeywordTaken = errors.New("keyword already exists globally")
	// ErrKeywordNotFound reports a resolution miss.
	ErrKeywordNotFound = errors.New("keyword not found")
)

// Broadcaster fans a payload out to a team's live subscribers.
type Broadcaster interface {
	Broadcast(teamID string, payload []byte)
}

// ClickEvent is published on the team's feed after each successful
// resolution. It is ephemeral; only the click counter is persisted.
type ClickEvent struct {
	Keyword string    `json:"keyword"`
	URL     string    `json:"url"`
	Clicks  int       `json:"clicks"`
	At      time.Time `json:"at"`
}

// Service manages the redirect keyword registry.
type Service struct {
	store  store.Store
	logger *slog.Logger
	feed   Broadcaster
}

// New constructs a Service. feed may be nil when no live feed is wired.
func New(st store.Store, logger *slog.Logger, feed Broadcaster) Service {
	return Service{store: st, logger: logger, feed: feed}
}

// Add registers a keyword for a team. Keywords are normalized to lowercase
// on creation and start with zero clicks.
func (s Service) Add(ctx context.Context, teamID, keyword, url string) (*domain.RedirectLink, error) {
	links, err := store.LoadList[domain.RedirectLink](ctx, s.store, store.KeyRedirects)
	if err != nil {
		return nil, err
	}
	owned := 0
	for _, l := range links {
		if l.TeamID == teamID {
			owned++
		}
	}
	if owned >= MaxPerTeam {
		return nil, ErrQuotaExceeded
	}
	lower := strings.ToLower(keyword)
	for _, l := range links {
		if strings.ToLower(l.Keyword) == lower {
			return nil, ErrKeywordTaken
		}
	}
	link := domain.RedirectLink{
		ID:      uuid.NewString(),
		TeamID:  teamID,
		Keyword: lower,
		URL:     url,
		Clicks:  0,
	}
	links = append(links, link)
	if err := store.SaveList(ctx, s.store, store.KeyRedirects, links); err != nil {
		return nil, err
	}
	s.logger.Info("redirect created", "team_id", teamID, "keyword", lower)
	return &link, nil
}

// List returns a team's redirects in storage order.
func (s Service) List(ctx context.Context, teamID string) ([]domain.RedirectLink, error) {
	links, err := store.LoadList[domain.RedirectLink](ctx, s.store, store.KeyRedirects)
	if err != nil {
		return nil, err
	}
	var out []domain.RedirectLink
	for _, l := range links {
		if l.TeamID == teamID {
			out = append(out, l)
		}
	}
	return out, nil
}

// Delete removes a redirect by id. Removing an absent id succeeds without
// touching the collection.
func (s Service) Delete(ctx context.Context, id string) error {
	links, err := store.LoadList[domain.RedirectLink](ctx, s.store, store.KeyRedirects)
	if err != nil {
		return err
	}
	kept := links[:0]
	removed := false
	for _, l := range links {
		if l.ID == id {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	if !removed {
		return nil
	}
	if err := store.SaveList(ctx, s.store, store.KeyRedirects, kept); err != nil {
		return err
	}
	s.logger.Info("redirect deleted", "redirect_id", id)
	return nil
}

// Resolve looks a keyword up case-insensitively across the whole registry.
// A hit increments the click counter, persists it, publishes a click event,
// and returns the target URL. A miss has no side effects.
func (s Service) Resolve(ctx context.Context, keyword string) (string, error) {
	links, err := store.LoadList[domain.RedirectLink](ctx, s.store, store.KeyRedirects)
	if err != nil {
		return "", err
	}
	lower := strings.ToLower(keyword)
	for i := range links {
		if links[i].Keyword != lower {
			continue
		}
		links[i].Clicks++
		if err := store.SaveList(ctx, s.store, store.KeyRedirects, links); err != nil {
			return "", err
		}
		s.publishClick(links[i])
		return links[i].URL, nil
	}
	return "", ErrKeywordNotFound
}

// Stats summarizes a team's registry for dashboard use.
type Stats struct {
	TotalLinks  int                  `json:"total_links"`
	TotalClicks int                  `json:"total_clicks"`
	TopLink     *domain.RedirectLink `json:"top_link,omitempty"`
}

// Stats derives totals and the most-clicked link for a team.
func (s Service) Stats(ctx context.Context, teamID string) (Stats, error) {
	links, err := s.List(ctx, teamID)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{TotalLinks: len(links)}
	for i := range links {
		stats.TotalClicks += links[i].Clicks
		if stats.TopLink == nil || links[i].Clicks > stats.TopLink.Clicks {
			stats.TopLink = &links[i]
		}
	}
	return stats, nil
}

func (s Service) publishClick(link domain.RedirectLink) {
	if s.feed == nil {
		return
	}
	payload, err := json.Marshal(ClickEvent{
		Keyword: link.Keyword,
		URL:     link.URL,
		Clicks:  link.Clicks,
		At:      time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("click event marshal failed", "error", err)
		return
	}
	s.feed.Broadcast(link.TeamID, payload)
}
