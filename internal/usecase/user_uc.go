package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/repository"
	"linkbio-billing/internal/infra/logging"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

const minPasswordLen = 8

// UserUseCase covers accounts and login sessions.
type UserUseCase interface {
	Register(ctx context.Context, email, username, password string) (*model.User, error)
	// Authenticate returns domain.ErrInvalidCredentials for unknown emails and wrong passwords alike.
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)

	StartSession(ctx context.Context, u *model.User) (*model.Session, error)
	CheckSession(ctx context.Context, id string) (*model.Session, error)
	EndSession(ctx context.Context, id string) error
}

type userUC struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	sessionTTL time.Duration
	log        *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, sessions repository.SessionRepository, sessionTTL time.Duration, logger *zerolog.Logger) *userUC {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &userUC{users: users, sessions: sessions, sessionTTL: sessionTTL, log: logger}
}

func (u *userUC) Register(ctx context.Context, email, username, password string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Register")()

	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := model.NewUser(email, username, string(hash))
	if err != nil {
		return nil, err
	}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}
	u.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (u *userUC) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := u.users.FindByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (u *userUC) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.users.FindByID(ctx, id)
}

func (u *userUC) StartSession(ctx context.Context, user *model.User) (*model.Session, error) {
	now := time.Now().UTC()
	s := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(u.sessionTTL),
	}
	if err := u.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (u *userUC) CheckSession(ctx context.Context, id string) (*model.Session, error) {
	s, err := u.sessions.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(s.ExpiresAt) {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (u *userUC) EndSession(ctx context.Context, id string) error {
	return u.sessions.Delete(ctx, id)
}
