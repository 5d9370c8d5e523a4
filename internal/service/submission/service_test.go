package submission

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hackday/teamportal/internal/store"
	"github.com/hackday/teamportal/pkg/config"
)

func testService() Service {
	st := store.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, log, config.PortalConfig{MaxAttachmentKB: 1})
}

func TestSubmitTitleOnlyDefaults(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	first, err := svc.Submit(ctx, SubmitInput{TeamID: "t-1", Title: "Demo Day"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Description != "" || first.ExternalURL != "" {
		t.Fatalf("expected empty defaults, got %+v", first)
	}
	if first.PDF != nil || first.Image != nil {
		t.Fatal("expected no attachments")
	}

	second, err := svc.Submit(ctx, SubmitInput{TeamID: "t-1", Title: "Demo Day"})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("each submission needs a fresh id, got %q twice", first.ID)
	}
}

func TestSubmitDefaultsUntitled(t *testing.T) {
	svc := testService()
	sub, err := svc.Submit(context.Background(), SubmitInput{TeamID: "t-1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Title != "Untitled" {
		t.Fatalf("expected default title, got %q", sub.Title)
	}
}

func TestSubmitRequiresTeamID(t *testing.T) {
	svc := testService()
	if _, err := svc.Submit(context.Background(), SubmitInput{Title: "x"}); !errors.Is(err, errMissingTeamID) {
		t.Fatalf("expected errMissingTeamID, got %v", err)
	}
}

func TestSubmitEnforcesAttachmentCap(t *testing.T) {
	svc := testService()
	big := bytes.Repeat([]byte{0x25}, 2048)
	_, err := svc.Submit(context.Background(), SubmitInput{TeamID: "t-1", PDF: big})
	if !errors.Is(err, ErrAttachmentTooLarge) {
		t.Fatalf("expected ErrAttachmentTooLarge, got %v", err)
	}
}

func TestSubmissionLogIsAppendOnlyAndOrdered(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	for _, title := range []string{"v1", "v2", "v3"} {
		if _, err := svc.Submit(ctx, SubmitInput{TeamID: "t-1", Title: title}); err != nil {
			t.Fatalf("Submit %s: %v", title, err)
		}
	}
	if _, err := svc.Submit(ctx, SubmitInput{TeamID: "t-2", Title: "other"}); err != nil {
		t.Fatalf("Submit other team: %v", err)
	}

	list, err := svc.ListByTeam(ctx, "t-1")
	if err != nil {
		t.Fatalf("ListByTeam: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 submissions for team, got %d", len(list))
	}
	for i, title := range []string{"v1", "v2", "v3"} {
		if list[i].Title != title {
			t.Fatalf("expected insertion order, got %q at %d", list[i].Title, i)
		}
	}
}
