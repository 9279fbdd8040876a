package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/washtrack/api/internal/mailer"
)

const (
	VerificationCodeTTL = 10 * time.Minute
	VerifiedEmailTTL    = 30 * time.Minute

	codeDigits = 5
)

var ErrInvalidCode = errors.New("invalid or expired verification code")

// CodeStore keeps short-lived strings. Satisfied by *cache.Cache.
type CodeStore interface {
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// VerificationService issues and checks email verification codes.
type VerificationService struct {
	store  CodeStore
	mailer mailer.Mailer
}

func NewVerificationService(store CodeStore, m mailer.Mailer) *VerificationService {
	return &VerificationService{store: store, mailer: m}
}

// SendCode generates a new code for email, replacing any previous one, and
// mails it.
func (s *VerificationService) SendCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if err := s.store.SetString(ctx, codeKey(email), code, VerificationCodeTTL); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	body := fmt.Sprintf("Your WashTrack verification code is %s.\n\nIt expires in %d minutes.",
		code, int(VerificationCodeTTL.Minutes()))
	if err := s.mailer.Send(ctx, email, "WashTrack verification code", body); err != nil {
		_ = s.store.Delete(ctx, codeKey(email))
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

// VerifyCode checks code against the stored one. On success the code is
// consumed and the email is marked verified.
func (s *VerificationService) VerifyCode(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	stored, ok, err := s.store.GetString(ctx, codeKey(email))
	if err != nil {
		return fmt.Errorf("get code: %w", err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		return ErrInvalidCode
	}

	if err := s.store.Delete(ctx, codeKey(email)); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	if err := s.store.SetString(ctx, verifiedKey(email), "1", VerifiedEmailTTL); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// IsVerified reports whether email passed verification recently.
func (s *VerificationService) IsVerified(ctx context.Context, email string) (bool, error) {
	_, ok, err := s.store.GetString(ctx, verifiedKey(normalizeEmail(email)))
	if err != nil {
		return false, fmt.Errorf("get verified flag: %w", err)
	}
	return ok, nil
}

// ConsumeVerification clears the verified flag once the email has been used.
func (s *VerificationService) ConsumeVerification(ctx context.Context, email string) error {
	return s.store.Delete(ctx, verifiedKey(normalizeEmail(email)))
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func codeKey(email string) string     { return "verify:code:" + email }
func verifiedKey(email string) string { return "verify:ok:" + email }
