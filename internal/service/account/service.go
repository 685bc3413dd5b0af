package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/mail"
	"strings"
	"time"

	"coffeeshop/internal/domain"
	accountrepo "coffeeshop/internal/repository/account"
	tokenrepo "coffeeshop/internal/repository/token"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

// Service handles account signup/login flows.
type Service struct {
	repo        accountrepo.Repository
	tokens      *tokenManager
	logger      *log.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
	passwordMin int
}

// New creates a Service with sane defaults.
func New(repo accountrepo.Repository, tokens tokenrepo.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens),
		logger:      logger,
		accessTTL:   48 * time.Hour,
		refreshTTL:  30 * 24 * time.Hour,
		passwordMin: 8,
	}
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Signup registers a new customer-facing account. Staff accounts are only
// created by the seed tooling via CreateStaff.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Account, error) {
	return s.create(ctx, in, false)
}

// CreateStaff registers an account allowed to use the staff channel.
func (s *Service) CreateStaff(ctx context.Context, in SignupInput) (*domain.Account, error) {
	return s.create(ctx, in, true)
}

func (s *Service) create(ctx context.Context, in SignupInput, staff bool) (*domain.Account, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrValidation)
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.Create(ctx, domain.Account{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsStaff:      staff,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("account service: signup id=%s staff=%t", a.ID, a.IsStaff)
	return a, nil
}

// Login validates credentials and returns issued tokens plus the account.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Account, string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)
	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCredentials
	}
	if n, err := s.tokens.Purge(ctx, a.ID); err != nil {
		s.logger.Printf("account service: purge tokens id=%s error=%v", a.ID, err)
	} else if n > 0 {
		s.logger.Printf("account service: purged expired tokens id=%s count=%d", a.ID, n)
	}
	return s.issuePair(ctx, a)
}

// Refresh redeems a refresh token for a new token pair. The old refresh token
// is consumed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.Account, string, string, error) {
	meta, ok := s.tokens.Consume(ctx, refreshToken, tokenrepo.KindRefresh)
	if !ok {
		return nil, "", "", ErrInvalidToken
	}
	a, err := s.repo.GetByID(ctx, meta.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", "", ErrInvalidToken
		}
		return nil, "", "", err
	}
	return s.issuePair(ctx, a)
}

func (s *Service) issuePair(ctx context.Context, a *domain.Account) (*domain.Account, string, string, error) {
	access, err := s.tokens.Issue(ctx, a.ID, tokenrepo.KindAccess, s.accessTTL)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := s.tokens.Issue(ctx, a.ID, tokenrepo.KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, "", "", err
	}
	return a, access, refresh, nil
}

// LookupByToken returns the account bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.Account, error) {
	meta, ok := s.tokens.Validate(ctx, token, tokenrepo.KindAccess)
	if !ok {
		return nil, ErrInvalidToken
	}
	a, err := s.repo.GetByID(ctx, meta.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return a, nil
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

func validatePassword(p string, min int) error {
	if len(p) < min {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("%w: password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number", domain.ErrValidation)
	}
	return nil
}
