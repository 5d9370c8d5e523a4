package session

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"github.com/google/uuid"

	"github.com/hackday/teamportal/internal/domain"
	"github.com/hackday/teamportal/internal/store"
	"github.com/hackday/teamportal/pkg/config"
	jwtpkg "github.com/hackday/teamportal/pkg/jwt"
)

// Service resolves identities by email and tracks the persisted session slot.
type Service struct {
	store  store.Store
	logger *slog.Logger
	cfg    config.PortalConfig
}

// New constructs a Service.
func New(st store.Store, logger *slog.Logger, cfg config.PortalConfig) Service {
	return Service{store: st, logger: logger, cfg: cfg}
}

var (
	errEmailRequired = errors.New("email is required")
	errUnknownUser   = errors.New("user not found for token")
)

// CurrentUser reads the session slot. Returns (nil, nil) when nobody is
// signed in.
func (s Service) CurrentUser(ctx context.Context) (*domain.User, error) {
	return store.LoadValue[domain.User](ctx, s.store, store.KeyCurrentUser)
}

// Login resolves a user by exact email match, creating one on first sight,
// then points the session slot at them. There is no credential check; the
// call only fails on a missing email or a storage error. The returned token
// lets API clients identify themselves on team-scoped routes.
func (s Service) Login(ctx context.Context, email string) (*domain.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, "", errEmailRequired
	}
	users, err := store.LoadList[domain.User](ctx, s.store, store.KeyUsers)
	if err != nil {
		return nil, "", err
	}
	var user *domain.User
	for i := range users {
		if users[i].Email == email {
			user = &users[i]
			break
		}
	}
	if user == nil {
		created := domain.User{
			ID:       uuid.NewString(),
			Email:    email,
			FullName: displayName(email),
		}
		users = append(users, created)
		if err := store.SaveList(ctx, s.store, store.KeyUsers, users); err != nil {
			return nil, "", err
		}
		user = &users[len(users)-1]
		s.logger.Info("user created", "user_id", created.ID)
	}
	if err := store.SaveValue(ctx, s.store, store.KeyCurrentUser, *user); err != nil {
		return nil, "", err
	}
	token, err := jwtpkg.GenerateToken(user.ID, user.TeamID, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// Logout clears the session slot. The user record stays.
func (s Service) Logout(ctx context.Context) error {
	return s.store.Delete(ctx, store.KeyCurrentUser)
}

// Authorize validates a bearer token and returns the named user.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, errors.New("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	users, err := store.LoadList[domain.User](ctx, s.store, store.KeyUsers)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == claims.UserID {
			return &users[i], nil
		}
	}
	return nil, errUnknownUser
}

// displayName derives the default name from the email's local part.
func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
