package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token fails signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token is past its expiry.
	ErrExpiredToken = errors.New("token has expired")
)

// TokenConfig selects signing material for issued tokens. When both PEM key
// fields are set the manager signs with RS256; otherwise it falls back to
// HS256 with Secret. TTL defaults to 15 minutes.
type TokenConfig struct {
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
	Secret        string
	TTL           time.Duration
	Issuer        string
}

// Claims are the token claims: registered set plus the user's roles.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies JWTs.
type TokenManager struct {
	cfg        TokenConfig
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	asymmetric bool
	nowFn      func() time.Time
}

// NewTokenManager builds a manager from cfg.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	m := &TokenManager{cfg: cfg, nowFn: time.Now}

	switch {
	case len(cfg.PrivateKeyPEM) > 0 && len(cfg.PublicKeyPEM) > 0:
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		m.method = jwt.SigningMethodRS256
		m.signKey = priv
		m.verifyKey = pub
		m.asymmetric = true
	case cfg.Secret != "":
		m.method = jwt.SigningMethodHS256
		m.signKey = []byte(cfg.Secret)
		m.verifyKey = []byte(cfg.Secret)
	default:
		return nil, errors.New("token manager needs an RSA key pair or a secret")
	}
	return m, nil
}

// Generate signs a token for username carrying its roles.
func (m *TokenManager) Generate(username string, roles []string) (string, error) {
	now := m.nowFn()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
		},
	}
	return jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
}

// Validate checks signature and expiry and returns the claims.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if m.asymmetric {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, ErrInvalidToken
			}
			return m.verifyKey.(*rsa.PublicKey), nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.verifyKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.nowFn() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TTL reports the configured token lifetime.
func (m *TokenManager) TTL() time.Duration { return m.cfg.TTL }
