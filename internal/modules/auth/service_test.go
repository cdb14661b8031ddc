package auth

import (
	"context"
	"testing"
	"time"

	"familytree/internal/database"
	"familytree/internal/domain"
	jwtsvc "familytree/internal/pkg/jwt"
	"familytree/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Mock User Repository implementing the interface
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	u.ID = 1
	return args.Error(0)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByProvider(ctx context.Context, provider, providerID string) (*domain.User, error) {
	args := m.Called(ctx, provider, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// Mock Refresh Token Repository
type mockRefreshTokenRepo struct {
	mock.Mock
}

func (m *mockRefreshTokenRepo) FindByUserID(ctx context.Context, userID int64) (*domain.RefreshToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepo) Save(ctx context.Context, t *domain.RefreshToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestCodec() *jwtsvc.Service {
	return jwtsvc.New("test-secret-123", "familytree-test")
}

func TestService_Signup_Success(t *testing.T) {
	userRepo := new(mockUserRepo)
	tokenRepo := new(mockRefreshTokenRepo)

	userRepo.On("ExistsByEmail", mock.Anything, "test@example.com").Return(false, nil)
	userRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	tokenRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := NewService(userRepo, tokenRepo, newTestCodec(), "pepper", 5*time.Minute, 7*24*time.Hour)

	user, pair, err := service.Signup(context.Background(), SignupRequest{
		Name:     "Test User",
		Email:    "Test@Example.com",
		Password: "securepass123",
	})

	require.NoError(t, err)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(300), pair.ExpiresIn)

	userRepo.AssertExpectations(t)
	tokenRepo.AssertExpectations(t)
}

func TestService_Signup_EmailExists(t *testing.T) {
	userRepo := new(mockUserRepo)
	tokenRepo := new(mockRefreshTokenRepo)

	userRepo.On("ExistsByEmail", mock.Anything, "exists@example.com").Return(true, nil)

	service := NewService(userRepo, tokenRepo, newTestCodec(), "pepper", 5*time.Minute, 7*24*time.Hour)

	_, _, err := service.Signup(context.Background(), SignupRequest{
		Name:     "Test User",
		Email:    "exists@example.com",
		Password: "securepass123",
	})

	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestService_Login_Success(t *testing.T) {
	userRepo := new(mockUserRepo)
	tokenRepo := new(mockRefreshTokenRepo)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	existingUser := &domain.User{
		ID:           10,
		Email:        "user@example.com",
		PasswordHash: string(hashed),
		Name:         "User",
		Role:         domain.RoleUser,
	}

	userRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(existingUser, nil)
	tokenRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := NewService(userRepo, tokenRepo, newTestCodec(), "pepper", 5*time.Minute, 7*24*time.Hour)

	user, pair, err := service.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10), user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	tokenRepo.AssertExpectations(t)
}

func TestService_Login_WrongPassword(t *testing.T) {
	userRepo := new(mockUserRepo)
	tokenRepo := new(mockRefreshTokenRepo)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	userRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(&domain.User{
		ID: 10, Email: "user@example.com", PasswordHash: string(hashed),
	}, nil)

	service := NewService(userRepo, tokenRepo, newTestCodec(), "pepper", 5*time.Minute, 7*24*time.Hour)

	_, _, err := service.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "nope",
	})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_UnknownEmail(t *testing.T) {
	userRepo := new(mockUserRepo)
	tokenRepo := new(mockRefreshTokenRepo)

	userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)

	service := NewService(userRepo, tokenRepo, newTestCodec(), "pepper", 5*time.Minute, 7*24*time.Hour)

	_, _, err := service.Login(context.Background(), LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_LoginWithProfile_ProvisionsUser(t *testing.T) {
	userRepo := new(mockUserRepo)
	tokenRepo := new(mockRefreshTokenRepo)

	userRepo.On("GetByProvider", mock.Anything, "google", "g-123").Return(nil, gorm.ErrRecordNotFound)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Provider == "google" && u.ProviderID == "g-123" && u.Email == "oauth@example.com"
	})).Return(nil)
	tokenRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := NewService(userRepo, tokenRepo, newTestCodec(), "pepper", 5*time.Minute, 7*24*time.Hour)

	user, pair, err := service.LoginWithProfile(context.Background(), "google", VerifiedProfile{
		ID:    "g-123",
		Name:  "OAuth User",
		Email: "OAuth@Example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "google", user.Provider)
	assert.NotEmpty(t, pair.RefreshToken)
	userRepo.AssertExpectations(t)
}

// Rotation semantics are checked against the real store so the
// upsert-by-replacement behavior is part of what is under test.

func setupRotationService(t *testing.T) (*Service, *repository.RefreshTokenRepository, *domain.User) {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}))

	users := repository.NewUserRepository(db)
	tokens := repository.NewRefreshTokenRepository(db)

	user := &domain.User{Email: "anna@example.com", Name: "Anna", Role: domain.RoleUser}
	require.NoError(t, users.Create(context.Background(), user))

	service := NewService(users, tokens, newTestCodec(), "pepper", 5*time.Minute, 7*24*time.Hour)
	return service, tokens, user
}

func TestService_Refresh_RotatesToken(t *testing.T) {
	service, tokens, user := setupRotationService(t)
	ctx := context.Background()

	first, err := service.issuePair(ctx, user)
	require.NoError(t, err)

	pair, err := service.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, pair.RefreshToken)

	// Exactly one stored row, matching the new token.
	stored, err := tokens.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, hashTokenWithPepper(pair.RefreshToken, "pepper"), stored.TokenHash)

	// Replaying the consumed token fails: its hash is gone from the store.
	_, err = service.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestService_Refresh_UnknownToken(t *testing.T) {
	service, _, user := setupRotationService(t)

	// Well-signed token for a user with no stored row.
	token, err := newTestCodec().Issue(user.ID, user.Email, user.Name, "user", time.Hour)
	require.NoError(t, err)

	_, err = service.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestService_Refresh_ExpiredToken(t *testing.T) {
	service, _, user := setupRotationService(t)

	token, err := newTestCodec().Issue(user.ID, user.Email, user.Name, "user", -1*time.Second)
	require.NoError(t, err)

	_, err = service.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, jwtsvc.ErrTokenExpired)
}

func TestService_Refresh_MalformedToken(t *testing.T) {
	service, _, _ := setupRotationService(t)

	_, err := service.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, jwtsvc.ErrTokenMalformed)
}

func TestService_Logout_ThenRefreshFailsLikeUnknown(t *testing.T) {
	service, tokens, user := setupRotationService(t)
	ctx := context.Background()

	pair, err := service.issuePair(ctx, user)
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, user.ID))

	_, err = tokens.FindByUserID(ctx, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Same failure as a token we never issued.
	_, err = service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestService_Logout_Idempotent(t *testing.T) {
	service, _, user := setupRotationService(t)
	ctx := context.Background()

	require.NoError(t, service.Logout(ctx, user.ID))
	require.NoError(t, service.Logout(ctx, user.ID))
}
