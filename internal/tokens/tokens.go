package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "portfolio-api"

// GenerateAccessToken creates a signed JWT access token for the admin
func GenerateAccessToken(secret string, a models.Admin, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   issuer,
		"sub":   a.Username,
		"name":  a.Name,
		"email": a.Email,
		"role":  "admin",
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// Verifier validates access tokens produced by GenerateAccessToken.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claimsToken jwt.MapClaims

func (t claimsToken) Claims(v interface{}) error {
	m, ok := v.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("unsupported claims type %T", v)
	}
	*m = map[string]interface{}(t)
	return nil
}

func (v *Verifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return claimsToken(claims), nil
}

// ExpiresIn returns the remaining lifetime of a token without verifying it.
// Used at logout to size the blacklist entry.
func ExpiresIn(raw string) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return time.Until(exp.Time)
}
