package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/clawmachine/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrProfileExists   = errors.New("profile already exists")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidName     = errors.New("name must be 1-32 characters")
	ErrInvalidPIN      = errors.New("pin must be 4-6 digits")
	ErrWrongPIN        = errors.New("incorrect pin")
)

// Profiles looks up and creates player profiles.
type Profiles interface {
	Create(ctx context.Context, name, pinHash string) (*models.Profile, error)
	ByName(ctx context.Context, name string) (*models.Profile, error)
	Touch(ctx context.Context, id int) error
}

// SQLProfiles keeps profiles in the profiles table.
type SQLProfiles struct {
	db *sqlx.DB
}

func NewSQLProfiles(db *sqlx.DB) *SQLProfiles {
	return &SQLProfiles{db: db}
}

func (s *SQLProfiles) Create(ctx context.Context, name, pinHash string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.GetContext(ctx, &p, `
		INSERT INTO profiles (name, pin_hash, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, name, pin_hash, created_at, last_active
	`, name, pinHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return nil, ErrProfileExists
	}
	if err != nil {
		return nil, fmt.Errorf("create profile %q: %w", name, err)
	}
	return &p, nil
}

func (s *SQLProfiles) ByName(ctx context.Context, name string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.GetContext(ctx, &p, `SELECT id, name, pin_hash, created_at, last_active FROM profiles WHERE name=$1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}
	return &p, nil
}

func (s *SQLProfiles) Touch(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE profiles SET last_active = NOW() WHERE id=$1`, id)
	return err
}

// NormalizeName trims the name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > 32 {
		return "", ErrInvalidName
	}
	return name, nil
}

// HashPIN validates and bcrypt-hashes a PIN.
func HashPIN(pin string) (string, error) {
	if len(pin) < 4 || len(pin) > 6 || !isDigits(pin) {
		return "", ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// CheckPIN compares a PIN against a stored hash.
func CheckPIN(hash, pin string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return ErrWrongPIN
	}
	return nil
}

// Register creates a profile with a hashed PIN.
func Register(ctx context.Context, store Profiles, name, pin string) (*models.Profile, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	hash, err := HashPIN(pin)
	if err != nil {
		return nil, err
	}
	return store.Create(ctx, name, hash)
}

// Authenticate returns the named profile if pin matches.
func Authenticate(ctx context.Context, store Profiles, name, pin string) (*models.Profile, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	p, err := store.ByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := CheckPIN(p.PINHash, pin); err != nil {
		return nil, err
	}
	return p, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
