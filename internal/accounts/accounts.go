// Package accounts registers accounts, authenticates them and manages
// profiles and password resets.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"example.com/microblog/internal/auth"
	"example.com/microblog/internal/common"
	"example.com/microblog/internal/i18n"
	"example.com/microblog/internal/logger"
	mailer "example.com/microblog/internal/mail"
	"example.com/microblog/internal/models"
)

var logg = logger.New()

const (
	maxUsernameLen = 64
	maxEmailLen    = 120
	maxAboutMeLen  = 140
	minPasswordLen = 8
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type Store interface {
	CreateAccount(ctx context.Context, acc *models.Account) (*models.Account, error)
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
	AccountByUsername(ctx context.Context, username string) (*models.Account, error)
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateProfile(ctx context.Context, id int64, username, aboutMe string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
}

type Options struct {
	Secret        []byte
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
}

type Service struct {
	store  Store
	mailer mailer.Mailer
	opts   Options
	now    func() time.Time
}

func NewService(st Store, m mailer.Mailer, opts Options) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 10 * time.Minute
	}
	return &Service{store: st, mailer: m, opts: opts, now: time.Now}
}

// Register creates an account with a hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, minPasswordLen)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc, err := s.store.CreateAccount(ctx, &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	logg.Info("accounts", fmt.Sprintf("Registered account_id=%d", acc.ID))
	return acc, nil
}

// Authenticate checks the credentials and issues a session token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, *models.Account, error) {
	acc, err := s.store.AccountByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, common.ErrNotFound) {
		return "", nil, fmt.Errorf("%w: invalid username or password", common.ErrUnauthorized)
	}
	if err != nil {
		return "", nil, err
	}

	ok, err := auth.CheckPassword(acc.PasswordHash, password)
	if err != nil || !ok {
		return "", nil, fmt.Errorf("%w: invalid username or password", common.ErrUnauthorized)
	}

	token, err := auth.GenerateToken(acc.ID, auth.PurposeSession, s.opts.Secret, s.opts.TokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, acc, nil
}

// AccountFromToken resolves a session token to its account id.
func (s *Service) AccountFromToken(token string) (int64, error) {
	return auth.ParseToken(token, auth.PurposeSession, s.opts.Secret)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.store.AccountByUsername(ctx, username)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.store.AccountByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, username, aboutMe string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len([]rune(aboutMe)) > maxAboutMeLen {
		return nil, fmt.Errorf("%w: about_me longer than %d characters", common.ErrValidation, maxAboutMeLen)
	}
	if err := s.store.UpdateProfile(ctx, id, username, aboutMe); err != nil {
		return nil, err
	}
	return s.store.AccountByID(ctx, id)
}

func (s *Service) TouchLastSeen(ctx context.Context, id int64) error {
	return s.store.TouchLastSeen(ctx, id, s.now().UTC())
}

// RequestPasswordReset mails a reset token to the owner of email. An unknown
// email is not reported to the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := s.store.AccountByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, common.ErrNotFound) {
		logg.Debug("accounts", "Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := auth.GenerateToken(acc.ID, auth.PurposeResetPassword, s.opts.Secret, s.opts.ResetTokenTTL)
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, mailer.Message{
		To:      acc.Email,
		Subject: i18n.T(ctx, i18n.MsgResetMailSubject),
		Body:    i18n.T(ctx, i18n.MsgResetMailBody, acc.Username, token),
	})
}

// ResetPassword sets a new password for the account the reset token was
// issued for.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	id, err := auth.ParseToken(token, auth.PurposeResetPassword, s.opts.Secret)
	if err != nil {
		return err
	}
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, minPasswordLen)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidToken
		}
		return err
	}
	logg.Info("accounts", fmt.Sprintf("Password reset for account_id=%d", id))
	return nil
}

func validateUsername(username string) error {
	if username == "" || len(username) > maxUsernameLen || !usernameRe.MatchString(username) {
		return fmt.Errorf("%w: username must be 1-%d letters, digits, '.', '_' or '-'", common.ErrValidation, maxUsernameLen)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLen {
		return fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	return nil
}
