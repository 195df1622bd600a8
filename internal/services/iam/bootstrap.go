package iam

import (
	"context"

	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/db/models"
)

// SeedAdmin makes sure email belongs to an approved administrator.
//
// A missing account is created with password. An existing account keeps
// its password and is promoted when either flag is missing.
func (s *iamService) SeedAdmin(ctx context.Context, email, password string) (*models.User, bool, error) {
	email = NormalizeEmail(email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, storageErr("lookup admin", err)
	}

	if existing == nil {
		user, err := s.CreateUser(ctx, NewUser{Email: email, Password: password, Admin: true, Approved: true})
		if err != nil {
			return nil, false, err
		}
		s.logger.Info("admin account seeded", zap.Int64("user_id", user.ID))
		return user, true, nil
	}

	if existing.IsAdmin && existing.Approved {
		return Sanitize(existing), false, nil
	}
	if err := s.users.Promote(ctx, existing.ID); err != nil {
		return nil, false, mapMutationErr("promote admin", err)
	}
	s.logger.Info("existing account promoted to admin", zap.Int64("user_id", existing.ID))
	user, err := s.GetUser(ctx, existing.ID)
	return user, false, err
}
