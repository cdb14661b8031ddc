package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"familytree/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service issues and rotates token pairs. It is the only writer of the
// refresh token store.
type Service struct {
	users              UserRepositoryInterface
	tokens             RefreshTokenRepositoryInterface
	jwt                tokenCodec
	refreshTokenPepper string
	accessTTL          time.Duration
	refreshTTL         time.Duration
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

func NewService(
	users UserRepositoryInterface,
	tokens RefreshTokenRepositoryInterface,
	jwt tokenCodec,
	refreshTokenPepper string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *Service {
	return &Service{
		users:              users,
		tokens:             tokens,
		jwt:                jwt,
		refreshTokenPepper: refreshTokenPepper,
		accessTTL:          accessTTL,
		refreshTTL:         refreshTTL,
	}
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*domain.User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""
	return user, pair, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if user.PasswordHash == "" {
		// Provider-backed account without a password.
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""
	return user, pair, nil
}

// LoginWithProfile signs in (or provisions) a user for a profile an
// external identity provider has already verified.
func (s *Service) LoginWithProfile(ctx context.Context, provider string, profile VerifiedProfile) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByProvider(ctx, provider, profile.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		user = &domain.User{
			Email:      strings.ToLower(strings.TrimSpace(profile.Email)),
			Name:       profile.Name,
			Role:       domain.RoleUser,
			Provider:   provider,
			ProviderID: profile.ID,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, nil, err
		}
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a refresh token for a fresh pair. Codec failures
// (expired, invalid, malformed) propagate unchanged; a token the store no
// longer holds fails with ErrInvalidRefreshToken regardless of whether it
// was rotated away, logged out, or never issued.
func (s *Service) Refresh(ctx context.Context, refreshRaw string) (*TokenPair, error) {
	claims, err := s.jwt.Verify(refreshRaw)
	if err != nil {
		return nil, err
	}

	stored, err := s.tokens.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	now := time.Now()
	if stored.TokenHash != hashTokenWithPepper(refreshRaw, s.refreshTokenPepper) || stored.IsExpired(now) {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	// issuePair persists the new token via Save, which replaces the row we
	// just checked; re-presenting refreshRaw after this point fails the
	// hash comparison above.
	return s.issuePair(ctx, user)
}

// Logout drops the user's refresh token unconditionally. The live access
// token is left to expire on its own; revocation latency equals the access
// TTL.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.tokens.DeleteByUserID(ctx, userID)
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *Service) issuePair(ctx context.Context, user *domain.User) (*TokenPair, error) {
	accessToken, err := s.jwt.Issue(user.ID, user.Email, user.Name, string(user.Role), s.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwt.Issue(user.ID, user.Email, user.Name, string(user.Role), s.refreshTTL)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Save(ctx, &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashTokenWithPepper(refreshToken, s.refreshTokenPepper),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func hashTokenWithPepper(raw, pepper string) string {
	sum := sha256.Sum256([]byte(raw + pepper))
	return hex.EncodeToString(sum[:])
}
