package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/cryptox"
	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/server/auth"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
)

// UserSummary is one row of the admin user list.
type UserSummary struct {
	User   *models.User
	Status models.UserStatus
}

// UserDetail is everything a reviewer needs about one member.
type UserDetail struct {
	User      *models.User
	Profile   *models.Profile
	Status    models.UserStatus
	Documents []DocumentView
}

// UpdateUserInput changes only the fields that are set.
type UpdateUserInput struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=64"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	IsAdmin  *bool   `json:"isAdmin"`
}

type SetPasswordInput struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AdminService is the reviewer side of the workflow. Every method runs
// RequireAdmin first; a rejected caller changes nothing.
type AdminService struct {
	Deps
}

func NewAdminService(d Deps) *AdminService {
	return &AdminService{Deps: d}
}

// ListUsers returns all members, or those whose username or e-mail
// contains query (case-insensitive).
func (s *AdminService) ListUsers(ctx context.Context, session *auth.Session, query string) ([]UserSummary, error) {
	if err := RequireAdmin(session); err != nil {
		return nil, err
	}

	repo := s.Repos.Users(s.DB)
	var (
		list []*models.User
		err  error
	)
	if q := strings.TrimSpace(query); q != "" {
		list, err = repo.Search(ctx, q)
	} else {
		list, err = repo.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]UserSummary, 0, len(list))
	for _, u := range list {
		st, err := loadStatus(ctx, s.Deps, s.DB, u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, UserSummary{User: u, Status: st})
	}
	return out, nil
}

// GetUser returns a member with profile, status and documents. Files carry
// presigned download links.
func (s *AdminService) GetUser(ctx context.Context, session *auth.Session, id string) (*UserDetail, error) {
	if err := RequireAdmin(session); err != nil {
		return nil, err
	}

	user, err := s.Repos.Users(s.DB).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := loadProfile(ctx, s.Deps, s.DB, id)
	if err != nil {
		return nil, err
	}
	status, err := loadStatus(ctx, s.Deps, s.DB, id)
	if err != nil {
		return nil, err
	}
	docs, err := documentViews(ctx, s.Deps, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: user, Profile: profile, Status: status, Documents: docs}, nil
}

// UpdateUser edits username, e-mail and admin flag. The root admin keeps
// its admin flag.
func (s *AdminService) UpdateUser(ctx context.Context, session *auth.Session, id string, in UpdateUserInput) (*models.User, error) {
	if err := RequireAdmin(session); err != nil {
		return nil, err
	}
	if err := common.Validate(in); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.Repos.Users(tx)
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if in.Username != nil {
			u.Username = strings.TrimSpace(*in.Username)
		}
		if in.Email != nil {
			u.Email = strings.TrimSpace(*in.Email)
		}
		if in.IsAdmin != nil {
			if u.IsRoot && !*in.IsAdmin {
				return common.ErrorRootAdmin
			}
			u.IsAdmin = *in.IsAdmin
		}
		if err := repo.Update(ctx, u); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.NewValidationError("email", "is already registered")
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info(ctx, "user updated", "user_id", id, "admin_id", session.UserID)
	return user, nil
}

// SetUserPassword replaces a member's password and signs them out of
// every refresh token.
func (s *AdminService) SetUserPassword(ctx context.Context, session *auth.Session, id string, in SetPasswordInput) error {
	if err := RequireAdmin(session); err != nil {
		return err
	}
	if err := common.Validate(in); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.Repos.Users(tx).SetPasswordHash(ctx, id, hash); err != nil {
			return err
		}
		return s.Repos.RefreshTokens(tx).DeleteByUser(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger().Info(ctx, "password changed by admin", "user_id", id, "admin_id", session.UserID)
	return nil
}

// Approve marks a member's documents as approved.
func (s *AdminService) Approve(ctx context.Context, session *auth.Session, id string) (*models.UserStatus, error) {
	return s.setUploadStatus(ctx, session, id, "approve", workflow.Approve())
}

// Reject marks a member's documents as rejected.
func (s *AdminService) Reject(ctx context.Context, session *auth.Session, id string) (*models.UserStatus, error) {
	return s.setUploadStatus(ctx, session, id, "reject", workflow.Reject())
}

func (s *AdminService) setUploadStatus(ctx context.Context, session *auth.Session, id, kind string, to workflow.UploadStatus) (*models.UserStatus, error) {
	if err := RequireAdmin(session); err != nil {
		return nil, err
	}

	repo := s.Repos.Statuses(s.DB)
	if err := repo.SetUploadStatus(ctx, id, to); err != nil {
		return nil, err
	}
	st, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Metrics.Transition(kind)
	s.logger().Info(ctx, "upload status changed", "user_id", id, "admin_id", session.UserID, "upload_status", to)
	return st, nil
}

// SetCommunityStatus moves a member to any community stage.
func (s *AdminService) SetCommunityStatus(ctx context.Context, session *auth.Session, id, stage string) (*models.UserStatus, error) {
	if err := RequireAdmin(session); err != nil {
		return nil, err
	}
	cs, err := workflow.ParseCommunityStatus(stage)
	if err != nil {
		return nil, err
	}

	repo := s.Repos.Statuses(s.DB)
	if err := repo.SetCommunityStatus(ctx, id, cs); err != nil {
		return nil, err
	}
	st, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Metrics.Transition("community")
	s.logger().Info(ctx, "community status changed", "user_id", id, "admin_id", session.UserID, "community_status", cs)
	return st, nil
}

// UnlockField unlocks the profile or one document category so the member
// can edit it again, and resets the upload status. An unknown field is a
// validation error and changes nothing.
func (s *AdminService) UnlockField(ctx context.Context, session *auth.Session, id, field string) (*models.UserStatus, error) {
	if err := RequireAdmin(session); err != nil {
		return nil, err
	}
	target, err := workflow.ResolveUnlockField(field)
	if err != nil {
		return nil, err
	}

	var st *models.UserStatus
	err = s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.Repos.Users(tx).GetByID(ctx, id); err != nil {
			return err
		}
		if target.Profile {
			if err := s.Repos.Profiles(tx).SetLocked(ctx, id, false); err != nil {
				return err
			}
		} else {
			if err := s.Repos.Documents(tx).SetLocked(ctx, id, target.Category, false); err != nil {
				return err
			}
		}
		statuses := s.Repos.Statuses(tx)
		if err := statuses.SetUploadStatus(ctx, id, workflow.AfterUnlock()); err != nil {
			return err
		}
		var err error
		st, err = statuses.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Transition("unlock")
	s.logger().Info(ctx, "field unlocked", "user_id", id, "admin_id", session.UserID, "field", target.Field)
	return st, nil
}

// DeleteUser removes a member with all their records. Their blobs are
// removed after the commit; failures there are only logged.
func (s *AdminService) DeleteUser(ctx context.Context, session *auth.Session, id string) error {
	if err := RequireAdmin(session); err != nil {
		return err
	}

	var keys []string
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.Repos.Users(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		if u.IsRoot {
			return common.ErrorRootAdmin
		}
		docs, err := s.Repos.Documents(tx).ListByUser(ctx, id)
		if err != nil {
			return err
		}
		for _, d := range docs {
			for _, f := range d.Files {
				keys = append(keys, f.Key)
			}
		}
		return s.Repos.Users(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		if err := s.Blobs.Delete(ctx, keys...); err != nil {
			s.logger().Warn(ctx, "removing blobs of deleted user failed", "user_id", id, "error", err)
		}
	}
	s.logger().Info(ctx, "user deleted", "user_id", id, "admin_id", session.UserID)
	return nil
}

type BootstrapRootInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// BootstrapRoot creates the root admin. It fails with ErrorAlreadyExists
// once a root admin exists. Operator use only; there is no session.
func (s *AdminService) BootstrapRoot(ctx context.Context, in BootstrapRootInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := common.Validate(in); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	var root *models.User
	err = s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.Repos.Users(tx)
		if _, err := users.GetRoot(ctx); err == nil {
			return fmt.Errorf("%w: root admin", common.ErrorAlreadyExists)
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		u, err := users.Create(ctx, &models.User{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			IsAdmin:      true,
			IsRoot:       true,
		})
		if err != nil {
			return err
		}
		if _, err := s.Repos.Statuses(tx).Create(ctx, u.ID); err != nil {
			return err
		}
		root = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info(ctx, "root admin created", "user_id", root.ID)
	return root, nil
}
