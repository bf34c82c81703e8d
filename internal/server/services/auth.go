package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/cryptox"
	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/server/auth"
	"github.com/dmitrijs2005/betclever/internal/server/mail"
	"github.com/dmitrijs2005/betclever/internal/server/models"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// LoginResult is returned by Register and Login.
type LoginResult struct {
	Tokens TokenPair
	User   *models.User
}

// Account is what the signed-in member sees about themselves.
type Account struct {
	User    *models.User
	Profile *models.Profile
	Status  models.UserStatus
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AuthService is the identity provider: accounts, credentials, tokens and
// password resets.
type AuthService struct {
	Deps
	jwtSecret []byte
}

func NewAuthService(d Deps) *AuthService {
	return &AuthService{Deps: d, jwtSecret: []byte(d.Config.SecretKey)}
}

// Register creates the account and its status row in one transaction and
// signs the new member in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := common.Validate(in); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	var user *models.User
	err = s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.Repos.Users(tx).Create(ctx, &models.User{Username: in.Username, Email: in.Email, PasswordHash: hash})
		if err != nil {
			return err
		}
		if _, err := s.Repos.Statuses(tx).Create(ctx, u.ID); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewValidationError("email", "is already registered")
		}
		return nil, err
	}

	s.Metrics.Registration()
	s.logger().Info(ctx, "user registered", "user_id", user.ID)

	pair, err := s.generateTokenPair(ctx, user.ID, s.DB)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: *pair, User: user}, nil
}

// Login checks credentials. Unknown e-mail and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := common.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.Repos.Users(s.DB).GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	ok, err := cryptox.CheckPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.DB)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: *pair, User: user}, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.Repos.RefreshTokens(s.DB)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	if token.ExpiresAt.Before(now()) {
		_ = repo.Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.Repos.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return err
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the access token of the session and drops refreshToken
// if it belongs to the same user.
func (s *AuthService) Logout(ctx context.Context, session *auth.Session, refreshToken string) error {
	if err := requireSession(session); err != nil {
		return err
	}

	if session.TokenID != "" {
		if err := s.Revoked.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}

	if refreshToken == "" {
		return nil
	}
	repo := s.Repos.RefreshTokens(s.DB)
	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	if token.UserID != session.UserID {
		return nil
	}
	return repo.Delete(ctx, refreshToken)
}

// Authenticate turns an access token into a Session.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*auth.Session, error) {
	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	revoked, err := s.Revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}

	user, err := s.Repos.Users(s.DB).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	session := &auth.Session{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
		IsRoot:   user.IsRoot,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// CurrentUser returns the caller's account, profile and status.
func (s *AuthService) CurrentUser(ctx context.Context, session *auth.Session) (*Account, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	user, err := s.Repos.Users(s.DB).GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	profile, err := loadProfile(ctx, s.Deps, s.DB, user.ID)
	if err != nil {
		return nil, err
	}
	status, err := loadStatus(ctx, s.Deps, s.DB, user.ID)
	if err != nil {
		return nil, err
	}
	return &Account{User: user, Profile: profile, Status: status}, nil
}

// RequestPasswordReset mails a one-time reset link if email belongs to an
// account. It reports success either way.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return common.NewValidationError("email", "is required")
	}

	user, err := s.Repos.Users(s.DB).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger().Debug(ctx, "password reset for unknown e-mail")
			return nil
		}
		return err
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	t := now()
	err = s.Repos.PasswordResets(s.DB).Create(ctx, &models.PasswordReset{
		TokenHash: cryptox.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: t.Add(s.Config.ResetTokenTTL),
		CreatedAt: t,
	})
	if err != nil {
		return err
	}

	link := strings.TrimRight(s.Config.PublicBaseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.Mailer.Send(ctx, mail.PasswordResetMessage(user.Email, user.Username, link)); err != nil {
		s.logger().Error(ctx, "sending password reset mail failed", "user_id", user.ID, "error", err)
		return nil
	}
	s.logger().Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and sets a new password. All refresh
// tokens of the user are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := common.Validate(in); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	tokenHash := cryptox.HashToken(in.Token)

	var userID string
	err = s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		resets := s.Repos.PasswordResets(tx)
		r, err := resets.Find(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrResetTokenInvalid
			}
			return err
		}
		if r.UsedAt != nil || r.ExpiresAt.Before(now()) {
			return common.ErrResetTokenInvalid
		}
		if err := resets.MarkUsed(ctx, tokenHash); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrResetTokenInvalid
			}
			return err
		}
		if err := s.Repos.Users(tx).SetPasswordHash(ctx, r.UserID, hash); err != nil {
			return err
		}
		userID = r.UserID
		return s.Repos.RefreshTokens(tx).DeleteByUser(ctx, r.UserID)
	})
	if err != nil {
		return err
	}

	s.logger().Info(ctx, "password reset", "user_id", userID)
	return nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, userID string, db dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.Config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if err := s.Repos.RefreshTokens(db).Create(ctx, userID, refresh, s.Config.RefreshTokenTTL); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now().Add(s.Config.AccessTokenTTL),
	}, nil
}
