package videos

import (
	"context"
	"log/slog"
	"strings"

	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/models"
)

// HandleIdentityCreated materialises the profile for a new identity. It is
// safe to deliver the same event more than once; only the first creates a
// row. displayName falls back to the local part of the email.
func (s *Service) HandleIdentityCreated(ctx context.Context, identityID, email, displayName string) (bool, error) {
	if !validID(identityID) {
		return false, ErrConstraintViolation
	}

	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	profile := models.Profile{
		ID:          identityID,
		Email:       email,
		DisplayName: displayName,
		IsAdmin:     s.isAdminEmail(email),
		CreatedAt:   s.now().UTC(),
	}

	created, err := s.profiles.Create(ctx, profile)
	if err != nil {
		return false, upstream(err)
	}
	if created {
		logging.FromContext(ctx).Info("profile created",
			slog.String("user_id", identityID),
			slog.Bool("is_admin", profile.IsAdmin),
		)
	}
	return created, nil
}
