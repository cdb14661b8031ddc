package auth

import (
	"context"
	"time"

	"familytree/internal/domain"
	jwtsvc "familytree/internal/pkg/jwt"
)

// UserRepositoryInterface lists only the methods the auth service uses.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenRepositoryInterface is the refresh token store; Save is an
// upsert-by-replacement keyed on user id.
type RefreshTokenRepositoryInterface interface {
	FindByUserID(ctx context.Context, userID int64) (*domain.RefreshToken, error)
	Save(ctx context.Context, t *domain.RefreshToken) error
	DeleteByUserID(ctx context.Context, userID int64) error
}

type tokenCodec interface {
	Issue(userID int64, email, name, role string, ttl time.Duration) (string, error)
	Verify(tokenStr string) (*jwtsvc.Claims, error)
}

// VerifiedProfile is what an external identity provider hands us after it
// has verified the user on its side.
type VerifiedProfile struct {
	ID    string
	Name  string
	Email string
}

// IdentityProvider abstracts the OAuth2 collaborator that turns a provider
// callback into a verified profile. Implementations live outside this
// module.
type IdentityProvider interface {
	FetchProfile(ctx context.Context, provider, code string) (*VerifiedProfile, error)
}
