package services

import (
	"context"
	"errors"
	"time"

	"sms-campaign/config"
	"sms-campaign/internal/proxy"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService validates bearer tokens issued by the identity provider.
type AuthService struct {
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: cfg.SessionTTL,
	}
}

type AccessClaims struct {
	UserID    string   `json:"sub"`
	SessionID string   `json:"sid"`
	Name      string   `json:"name,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, sms_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, sms_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, sms_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, sms_errors.ErrUnauthorized
	}

	return *claims, nil
}

// Authenticate turns a bearer token into the caller identity and session id.
func (s *AuthService) Authenticate(tokenString string) (proxy.Principal, string, error) {
	claims, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return proxy.Principal{}, "", err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return proxy.Principal{}, "", sms_errors.ErrUnauthorized
	}
	if claims.SessionID == "" {
		return proxy.Principal{}, "", sms_errors.ErrUnauthorized
	}
	return proxy.Principal{ID: userID, Name: claims.Name, Roles: claims.Roles}, claims.SessionID, nil
}

// IssueAccessToken signs a token for p. Used by operators and tests.
func (s *AuthService) IssueAccessToken(p proxy.Principal, sessionID string) (string, error) {
	if p.ID == uuid.Nil || sessionID == "" {
		return "", errors.New("principal id and session id are required")
	}
	now := time.Now()
	claims := AccessClaims{
		UserID:    p.ID.String(),
		SessionID: sessionID,
		Name:      p.Name,
		Roles:     p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

type ctxKey string

var principalKey ctxKey = "principal"
var sessionIDKey ctxKey = "session_id"

func WithPrincipalContext(ctx context.Context, p proxy.Principal, sessionID string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func PrincipalFromContext(ctx context.Context) (proxy.Principal, bool) {
	p, ok := ctx.Value(principalKey).(proxy.Principal)
	return p, ok
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionIDKey).(string)
	return sid, ok && sid != ""
}
