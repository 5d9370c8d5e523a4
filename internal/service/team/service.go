package team

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/hackday/teamportal/internal/domain"
	"github.com/hackday/teamportal/internal/store"
)

// Service handles team workflows.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// New constructs a Service.
func New(st store.Store, logger *slog.Logger) Service {
	return Service{store: st, logger: logger}
}

// ErrNotFound reports a team id that does not resolve.
var ErrNotFound = errors.New("team not found")

// Create registers a team with the owner as its sole Leader, links the
// owner's user record to the new team, and refreshes the session slot so a
// stale session cannot mask the membership. Team names are not unique.
func (s Service) Create(ctx context.Context, name string, owner domain.User) (*domain.Team, error) {
	teams, err := store.LoadList[domain.Team](ctx, s.store, store.KeyTeams)
	if err != nil {
		return nil, err
	}
	team := domain.Team{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: owner.ID,
		Members: []domain.TeamMember{{
			ID:    owner.ID,
			Name:  owner.FullName,
			Email: owner.Email,
			Role:  domain.RoleLeader,
		}},
		CreatedAt: time.Now().UTC(),
	}
	teams = append(teams, team)
	if err := store.SaveList(ctx, s.store, store.KeyTeams, teams); err != nil {
		return nil, err
	}

	users, err := store.LoadList[domain.User](ctx, s.store, store.KeyUsers)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == owner.ID {
			users[i].TeamID = team.ID
		}
	}
	if err := store.SaveList(ctx, s.store, store.KeyUsers, users); err != nil {
		return nil, err
	}

	owner.TeamID = team.ID
	if err := store.SaveValue(ctx, s.store, store.KeyCurrentUser, owner); err != nil {
		return nil, err
	}

	s.logger.Info("team created", "team_id", team.ID, "owner_id", owner.ID)
	return &team, nil
}

// Get looks a team up by id.
func (s Service) Get(ctx context.Context, id string) (*domain.Team, error) {
	teams, err := store.LoadList[domain.Team](ctx, s.store, store.KeyTeams)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		if teams[i].ID == id {
			return &teams[i], nil
		}
	}
	return nil, ErrNotFound
}

// AddMember appends a Member-role entry with a fresh identity. The invited
// person's own user record is not linked here; that only happens when they
// log in and create or join a team themselves.
func (s Service) AddMember(ctx context.Context, teamID, email, name string) (*domain.Team, error) {
	teams, err := store.LoadList[domain.Team](ctx, s.store, store.KeyTeams)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range teams {
		if teams[i].ID == teamID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrNotFound
	}
	member := domain.TeamMember{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Role:  domain.RoleMember,
	}
	teams[idx].Members = append(teams[idx].Members, member)
	if err := store.SaveList(ctx, s.store, store.KeyTeams, teams); err != nil {
		return nil, err
	}
	s.logger.Info("team member added", "team_id", teamID, "member_id", member.ID)
	return &teams[idx], nil
}
