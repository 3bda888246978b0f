package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gestaopro/gestaopro-server/internal/models"
)

// ========== Profile Methods ==========

const profileColumns = `id, created_at, updated_at, email, full_name, phone, avatar_url,
               password_hash, role, company_id, last_sign_in_at`

// CreateProfile creates a new profile. PasswordHash must already be set.
func (s *PostgresStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query := `
        INSERT INTO profiles (
            id, created_at, updated_at, email, full_name, phone, avatar_url,
            password_hash, role, company_id
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		profile.ID, profile.CreatedAt, profile.UpdatedAt, profile.Email, profile.FullName,
		profile.Phone, profile.AvatarURL, profile.PasswordHash, string(profile.Role),
		profile.CompanyID,
	)

	return classifyError(err)
}

// GetProfile gets a profile by ID
func (s *PostgresStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `
        SELECT ` + profileColumns + `
        FROM profiles
        WHERE id = $1`

	return s.scanProfile(s.getDB().QueryRowContext(ctx, query, id))
}

// GetProfileByEmail gets a profile by email
func (s *PostgresStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `
        SELECT ` + profileColumns + `
        FROM profiles
        WHERE email = $1`

	return s.scanProfile(s.getDB().QueryRowContext(ctx, query, email))
}

// TouchProfileSignIn records a successful sign in
func (s *PostgresStore) TouchProfileSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := s.getDB().ExecContext(ctx,
		"UPDATE profiles SET last_sign_in_at = $2 WHERE id = $1", id, at)
	if err != nil {
		return classifyError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) scanProfile(row interface{ Scan(...interface{}) error }) (*models.Profile, error) {
	profile := &models.Profile{}
	var role string
	err := row.Scan(
		&profile.ID, &profile.CreatedAt, &profile.UpdatedAt, &profile.Email, &profile.FullName,
		&profile.Phone, &profile.AvatarURL, &profile.PasswordHash, &role,
		&profile.CompanyID, &profile.LastSignInAt,
	)
	if err != nil {
		return nil, classifyError(err)
	}

	profile.Role = models.Role(role)
	return profile, nil
}

// ========== Company Methods ==========

// CreateCompany creates a new company
func (s *PostgresStore) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}

	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now

	if company.Settings == nil {
		company.Settings = make(models.Variables)
	}

	query := `
        INSERT INTO companies (
            id, created_at, updated_at, name, document, email, phone, address, settings
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		company.ID, company.CreatedAt, company.UpdatedAt, company.Name, company.Document,
		company.Email, company.Phone, company.Address, company.Settings,
	)

	return classifyError(err)
}
