package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/domain"
)

const resetTokenBytes = 32

// IssueResetToken stores a fresh reset token for the user with email and
// returns the plaintext token. Only its SHA-256 digest is persisted; any
// previously issued token stops working.
func (s *Service) IssueResetToken(ctx context.Context, email string) (string, *entities.User, error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, &domain.StorageError{Op: "generate reset token", Err: err}
	}
	token := hex.EncodeToString(raw)
	expires := s.now().Add(s.opts.ResetTokenTTL)

	var user *entities.User
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		u, err := s.findBy(ctx, "email", normalizeEmail(email))
		if err != nil {
			return err
		}
		record, err := s.users.Update(ctx, interfaces.StringID(u.ID), interfaces.Record{
			"reset_token_hash":       digest(token),
			"reset_token_expires_at": expires,
		})
		if err != nil {
			return domain.FromStorage("store reset token", err)
		}
		user = entities.UserFromRecord(record)
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	s.logger.Infow("Password reset token issued", "user_id", user.ID, "expires_at", expires)
	return token, user, nil
}

// ValidateResetToken reports whether token is currently redeemable
func (s *Service) ValidateResetToken(ctx context.Context, token string) (*entities.User, error) {
	var user *entities.User
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		u, err := s.userForToken(ctx, token)
		user = u
		return err
	})
	return user, err
}

// ConsumeResetToken sets a new password for the token's owner and clears
// the token so it cannot be used again.
func (s *Service) ConsumeResetToken(ctx context.Context, token, newPassword string) error {
	if err := validPassword(newPassword); err != nil {
		return err
	}

	var userID string
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		user, err := s.userForToken(ctx, token)
		if err != nil {
			return err
		}
		hash, err := s.hashPassword(newPassword)
		if err != nil {
			return err
		}
		_, err = s.users.Update(ctx, interfaces.StringID(user.ID), interfaces.Record{
			"password_hash":          hash,
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
		})
		if err != nil {
			return domain.FromStorage("reset password", err)
		}
		userID = user.ID
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordMutation(ctx, "user", "reset_password")
	s.logger.Infow("Password reset", "user_id", userID)
	return nil
}

func (s *Service) userForToken(ctx context.Context, token string) (*entities.User, error) {
	token = strings.TrimSpace(token)
	if len(token) != hex.EncodedLen(resetTokenBytes) {
		return nil, domain.ErrInvalidToken
	}
	user, err := s.findBy(ctx, "reset_token_hash", digest(token))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if user.ResetTokenExpiresAt == nil || !s.now().Before(*user.ResetTokenExpiresAt) {
		return nil, domain.ErrInvalidToken
	}
	return user, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
