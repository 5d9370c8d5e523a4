package redirect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/hackday/teamportal/internal/domain"
	"github.com/hackday/teamportal/internal/store"
)

type feedStub struct {
	teamIDs  []string
	payloads [][]byte
}

func (f *feedStub) Broadcast(teamID string, payload []byte) {
	f.teamIDs = append(f.teamIDs, teamID)
	f.payloads = append(f.payloads, payload)
}

func testService(feed Broadcaster) (Service, store.Store) {
	st := store.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, log, feed), st
}

func fillTeam(t *testing.T, svc Service, teamID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		kw := fmt.Sprintf("%s-kw-%d", teamID, i)
		if _, err := svc.Add(context.Background(), teamID, kw, "https://example.com"); err != nil {
			t.Fatalf("fill %s: %v", kw, err)
		}
	}
}

func TestAddNormalizesKeyword(t *testing.T) {
	svc, _ := testService(nil)
	link, err := svc.Add(context.Background(), "t-1", "DemoDay", "https://example.com/demo")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if link.Keyword != "demoday" {
		t.Fatalf("expected lowercase keyword, got %q", link.Keyword)
	}
	if link.Clicks != 0 {
		t.Fatalf("expected zero clicks at creation, got %d", link.Clicks)
	}
}

func TestKeywordConflictIsGlobalAndCaseInsensitive(t *testing.T) {
	svc, _ := testService(nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "t-1", "demo", "https://example.com/a"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Same keyword, different case, different team: still a conflict.
	if _, err := svc.Add(ctx, "t-2", "DEMO", "https://example.com/b"); !errors.Is(err, ErrKeywordTaken) {
		t.Fatalf("expected ErrKeywordTaken, got %v", err)
	}
}

func TestQuotaCheckedBeforeConflict(t *testing.T) {
	svc, _ := testService(nil)
	ctx := context.Background()
	fillTeam(t, svc, "t-1", MaxPerTeam)

	// Brand-new keyword: quota error.
	if _, err := svc.Add(ctx, "t-1", "fresh", "https://example.com"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	// Conflicting keyword on a full team must still see the quota error.
	if _, err := svc.Add(ctx, "t-1", "t-1-kw-0", "https://example.com"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota to win over conflict, got %v", err)
	}
}

func TestDeleteFreesQuota(t *testing.T) {
	svc, _ := testService(nil)
	ctx := context.Background()
	fillTeam(t, svc, "t-1", MaxPerTeam)

	if _, err := svc.Add(ctx, "t-1", "eleventh", "https://example.com"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	links, _ := svc.List(ctx, "t-1")
	if err := svc.Delete(ctx, links[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Add(ctx, "t-1", "eleventh", "https://example.com"); err != nil {
		t.Fatalf("expected add to succeed after delete, got %v", err)
	}
	links, _ = svc.List(ctx, "t-1")
	if len(links) != MaxPerTeam {
		t.Fatalf("expected team back at %d links, got %d", MaxPerTeam, len(links))
	}
}

func TestResolveIsCaseInsensitiveAndCounts(t *testing.T) {
	svc, _ := testService(nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "t-1", "Demo", "https://example.com/demo"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	for i, kw := range []string{"demo", "DEMO"} {
		url, err := svc.Resolve(ctx, kw)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", kw, err)
		}
		if url != "https://example.com/demo" {
			t.Fatalf("unexpected url %q", url)
		}
		links, _ := svc.List(ctx, "t-1")
		if links[0].Clicks != i+1 {
			t.Fatalf("expected %d clicks after resolve %d, got %d", i+1, i+1, links[0].Clicks)
		}
	}
}

func TestResolveMissHasNoSideEffects(t *testing.T) {
	svc, _ := testService(nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "t-1", "demo", "https://example.com"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Resolve(ctx, "unknown"); !errors.Is(err, ErrKeywordNotFound) {
		t.Fatalf("expected ErrKeywordNotFound, got %v", err)
	}
	links, _ := svc.List(ctx, "t-1")
	if links[0].Clicks != 0 {
		t.Fatalf("miss must not touch counters, got %d", links[0].Clicks)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, _ := testService(nil)
	ctx := context.Background()

	link, err := svc.Add(ctx, "t-1", "demo", "https://example.com")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Delete(ctx, "does-not-exist"); err != nil {
		t.Fatalf("deleting an absent id must succeed, got %v", err)
	}
	links, _ := svc.List(ctx, "t-1")
	if len(links) != 1 {
		t.Fatalf("no-op delete must not alter the list, got %d links", len(links))
	}

	if err := svc.Delete(ctx, link.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Resolve(ctx, "demo"); !errors.Is(err, ErrKeywordNotFound) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestResolvePublishesClickEvent(t *testing.T) {
	feed := &feedStub{}
	svc, _ := testService(feed)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "t-1", "demo", "https://example.com/demo"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Resolve(ctx, "demo"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(feed.payloads) != 1 || feed.teamIDs[0] != "t-1" {
		t.Fatalf("expected one event for t-1, got %+v", feed.teamIDs)
	}
	var event ClickEvent
	if err := json.Unmarshal(feed.payloads[0], &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Keyword != "demo" || event.Clicks != 1 {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestStatsAggregatesTeamLinks(t *testing.T) {
	svc, st := testService(nil)
	ctx := context.Background()

	seed := []domain.RedirectLink{
		{ID: "r-1", TeamID: "t-1", Keyword: "a", URL: "https://a", Clicks: 2},
		{ID: "r-2", TeamID: "t-1", Keyword: "b", URL: "https://b", Clicks: 5},
		{ID: "r-3", TeamID: "t-2", Keyword: "c", URL: "https://c", Clicks: 9},
	}
	if err := store.SaveList(ctx, st, store.KeyRedirects, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	stats, err := svc.Stats(ctx, "t-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalLinks != 2 || stats.TotalClicks != 7 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.TopLink == nil || stats.TopLink.Keyword != "b" {
		t.Fatalf("unexpected top link: %+v", stats.TopLink)
	}
}
