package authenticator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/taskdeck/taskdeck/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// UserClaims is the payload of an access token. Roles are carried for
// display only; authorization re-reads the actor's roles from the database
// on every request, since membership can change between requests.
type UserClaims struct {
	UserID string   `json:"uid"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies first-party HS256 access tokens. When a
// Redis client is configured, logout puts the token id on a denylist until
// the token would have expired anyway.
type Authenticator struct {
	secret   []byte
	tokenTTL time.Duration
	denylist *redis.Client
}

func New(conf *config.Config) *Authenticator {
	secret := conf.JWT_SECRET
	if secret == "" {
		slog.Warn("JWT_SECRET not set, using an insecure development secret")
		secret = "taskdeck-dev-secret"
	}

	a := &Authenticator{
		secret:   []byte(secret),
		tokenTTL: time.Duration(conf.TOKEN_TTL_HOURS) * time.Hour,
	}

	if conf.REDIS_HOST != "" {
		a.denylist = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", conf.REDIS_HOST, conf.REDIS_PORT),
			Password: conf.REDIS_PASSWORD,
		})
		slog.Info("Token denylist enabled", slog.String("redis", conf.REDIS_HOST))
	}

	return a
}

// NewWithDenylist is used by tests to inject a Redis client directly.
func NewWithDenylist(secret string, ttl time.Duration, client *redis.Client) *Authenticator {
	return &Authenticator{secret: []byte(secret), tokenTTL: ttl, denylist: client}
}

func (a *Authenticator) GenerateToken(userID, name, email string, roles []string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		Name:   name,
		Email:  email,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (a *Authenticator) VerifyAccessToken(ctx context.Context, tokenString string) (*UserClaims, error) {
	var claims UserClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if a.denylist != nil && claims.ID != "" {
		n, err := a.denylist.Exists(ctx, denylistKey(claims.ID)).Result()
		if err != nil {
			return nil, fmt.Errorf("denylist check: %w", err)
		}
		if n > 0 {
			return nil, ErrTokenRevoked
		}
	}

	return &claims, nil
}

// Revoke denylists the token until its natural expiry. Without Redis this is
// a no-op and logout only clears the cookie.
func (a *Authenticator) Revoke(ctx context.Context, claims *UserClaims) error {
	if a.denylist == nil || claims.ID == "" {
		return nil
	}

	ttl := a.tokenTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}

	return a.denylist.Set(ctx, denylistKey(claims.ID), "1", ttl).Err()
}

func denylistKey(jti string) string {
	return "revoked:" + jti
}
