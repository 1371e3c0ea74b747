// Package sendingprofile manages SMTP credential records. Passwords are
// encrypted before they reach the database and never returned to
// operators.
package sendingprofile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
	apperrors "github.com/phishsentinel/phishsentinel-api/pkg/errors"
	"github.com/phishsentinel/phishsentinel-api/pkg/security"
)

type Service struct {
	repo      repository.SendingProfileRepository
	encryptor security.Encryptor
}

func NewService(repo repository.SendingProfileRepository, encryptor security.Encryptor) *Service {
	return &Service{repo: repo, encryptor: encryptor}
}

func (s *Service) Create(ctx context.Context, profile *model.SendingProfile) error {
	if err := profile.Validate(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	if err := s.encryptPassword(profile); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		return apperrors.Internal(err)
	}
	profile.Password = ""
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.SendingProfile, error) {
	profile, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("sending profile", err)
		}
		return nil, apperrors.Internal(err)
	}
	profile.Password = ""
	return profile, nil
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID) ([]*model.SendingProfile, error) {
	profiles, err := s.repo.List(ctx, companyID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	for _, p := range profiles {
		p.Password = ""
	}
	return profiles, nil
}

// Update re-encrypts the password only when the operator supplies a new
// one; an empty password keeps the stored credential.
func (s *Service) Update(ctx context.Context, profile *model.SendingProfile) error {
	if err := profile.Validate(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	if profile.Password == "" {
		existing, err := s.repo.Get(ctx, profile.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("sending profile", err)
			}
			return apperrors.Internal(err)
		}
		profile.Password = existing.Password
	} else if err := s.encryptPassword(profile); err != nil {
		return apperrors.Internal(err)
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		return apperrors.Internal(err)
	}
	profile.Password = ""
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) encryptPassword(profile *model.SendingProfile) error {
	if s.encryptor == nil || profile.Password == "" {
		return nil
	}
	encrypted, err := s.encryptor.EncryptString(profile.Password)
	if err != nil {
		return err
	}
	profile.Password = encrypted
	return nil
}
