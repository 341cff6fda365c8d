package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"

	"github.com/golang-jwt/jwt"
)

// ErrAuth — общий корень ошибок аутентификации; соединение с такой ошибкой закрывается.
var ErrAuth = errors.New("auth")

var (
	ErrMissingToken   = fmt.Errorf("%w: missing token", ErrAuth)
	ErrInvalidToken   = fmt.Errorf("%w: invalid token", ErrAuth)
	ErrInvalidIssuer  = fmt.Errorf("%w: invalid issuer", ErrAuth)
	ErrTokenExpired   = fmt.Errorf("%w: token expired or not valid yet", ErrAuth)
	ErrInvalidSubject = fmt.Errorf("%w: missing userId", ErrAuth)
)

// SessionClaims — payload сессионного токена, userId обязателен.
type SessionClaims struct {
	UserID string `json:"userId"`
	jwt.StandardClaims
}

// Valid отключает встроенную проверку времени jwt: exp/nbf сверяются в Authenticate с учётом clockSkew.
func (c SessionClaims) Valid() error { return nil }

// Используется SigningMethodHS256 с общим секретом процесса
type Authenticator struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	now       func() time.Time
}

func NewAuthenticator(secret, issuer string, ttl, clockSkew time.Duration) *Authenticator {
	return &Authenticator{
		secret:    []byte(secret),
		issuer:    issuer,
		ttl:       ttl,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

// WithClock подменяет часы (для тестов).
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	if now != nil {
		a.now = now
	}
	return a
}

// Sign выпускает токен с userId; exp ставится только при ttl > 0.
func (a *Authenticator) Sign(userID domain.UserID, now time.Time) (string, error) {
	if userID == "" {
		return "", ErrInvalidSubject
	}
	claims := SessionClaims{
		UserID: string(userID),
		StandardClaims: jwt.StandardClaims{
			Issuer:   a.issuer,
			IssuedAt: now.Unix(),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = now.Add(a.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(a.secret)
}

// Authenticate проверяет подпись и временные клеймы, возвращает userId.
func (a *Authenticator) Authenticate(tokenStr string) (domain.UserID, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return "", ErrMissingToken
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return "", ErrInvalidIssuer
	}

	now := a.now()
	// exp / nbf необязательны; если есть — даём люфт clockSkew
	if claims.ExpiresAt != 0 && now.After(time.Unix(claims.ExpiresAt, 0).Add(a.clockSkew)) {
		return "", ErrTokenExpired
	}
	if claims.NotBefore != 0 && now.Before(time.Unix(claims.NotBefore, 0).Add(-a.clockSkew)) {
		return "", ErrTokenExpired
	}

	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		return "", ErrInvalidSubject
	}

	return domain.UserID(userID), nil
}
