package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaopro/gestaopro-server/internal/config"
	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/storage"
	"github.com/gestaopro/gestaopro-server/pkg/crypto"
)

// Credential errors
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service registers and authenticates profiles
type Service struct {
	store  storage.Store
	tokens *JWTManager
	config *config.AuthConfig
}

// NewService creates a credential service
func NewService(store storage.Store, tokens *JWTManager, cfg *config.AuthConfig) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		config: cfg,
	}
}

// Tokens returns the token manager used for issued sessions
func (s *Service) Tokens() *JWTManager {
	return s.tokens
}

// SignupInput holds the fields accepted at registration
type SignupInput struct {
	Email       string
	Password    string
	FullName    string
	CompanyName string
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a profile. With a company name, the company and its first
// admin are created in one transaction.
func (s *Service) Register(ctx context.Context, in SignupInput) (*models.Profile, error) {
	email := NormalizeEmail(in.Email)

	if _, err := s.store.GetProfileByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := crypto.HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	companyName := strings.TrimSpace(in.CompanyName)
	if companyName == "" {
		if err := s.store.CreateProfile(ctx, profile); err != nil {
			return nil, createProfileError(err)
		}
		return profile, nil
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin signup: %w", err)
	}
	defer tx.Rollback()

	company := &models.Company{Name: companyName, Email: email}
	if err := tx.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	profile.CompanyID = &company.ID
	profile.Role = models.RoleAdmin
	if err := tx.CreateProfile(ctx, profile); err != nil {
		return nil, createProfileError(err)
	}

	if err := tx.Commit(); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("commit signup: %w", err)
	}

	log.Info().
		Str("user_id", profile.ID.String()).
		Str("company_id", company.ID.String()).
		Msg("Company registered")

	return profile, nil
}

func createProfileError(err error) error {
	if errors.Is(err, storage.ErrDuplicateKey) {
		return ErrEmailTaken
	}
	return fmt.Errorf("create profile: %w", err)
}

// Authenticate checks an email and password pair
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Profile, error) {
	profile, err := s.store.GetProfileByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if !crypto.VerifyPassword(password, profile.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.store.TouchProfileSignIn(ctx, profile.ID, now); err != nil {
		log.Warn().Err(err).Str("user_id", profile.ID.String()).Msg("Failed to record sign in")
	} else {
		profile.LastSignInAt = &now
	}

	return profile, nil
}
