package jwt

import (
	"errors"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures. Every caller (auth filter, rotation service) sees
// this same taxonomy, so an expired token is reported the same way no matter
// where it is checked.
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenInvalid   = errors.New("token is invalid")
)

// Service signs and verifies compact HS256 tokens. It holds no per-token
// state: claims are re-derived from the token string on every call.
type Service struct {
	secret []byte
	issuer string
}

type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwtlib.RegisteredClaims
}

func New(secret, issuer string) *Service {
	return &Service{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Issue signs a claim set valid for ttl starting now. Both access and
// refresh tokens go through here; only the ttl differs.
func (s *Service) Issue(userID int64, email, name, role string, ttl time.Duration) (string, error) {
	if userID == 0 {
		return "", ErrTokenInvalid
	}

	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			// iat has second precision; the jti keeps two tokens minted in
			// the same second distinct, which rotation relies on.
			ID: uuid.NewString(),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses tokenStr, checks the signature and the registered claims and
// returns the claim set. Structural garbage maps to ErrTokenMalformed, a
// well-signed stale token always maps to ErrTokenExpired, everything else
// (bad signature, wrong algorithm, wrong issuer, zero subject) to
// ErrTokenInvalid.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(s.issuer),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenInvalid
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Claim extractors. Each one re-verifies the token, so calling them on an
// unverified or invalid token surfaces the same errors as Verify.

func (s *Service) UserID(tokenStr string) (int64, error) {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func (s *Service) Email(tokenStr string) (string, error) {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

func (s *Service) Name(tokenStr string) (string, error) {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Name, nil
}

func (s *Service) Role(tokenStr string) (string, error) {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}
