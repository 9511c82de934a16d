package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName — имя cookie с токеном сессии.
const CookieName = "auth_token"

// DefaultTokenTTL — срок жизни токена по умолчанию.
const DefaultTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Session — проверенная сессия арендатора.
type Session struct {
	TenantCode string
	SessionID  string
}

// Claims — стандартные утверждения плюс арендатор и идентификатор сессии.
type Claims struct {
	jwt.RegisteredClaims
	TenantCode string `json:"tenant_code"`
	SessionID  string `json:"sid"`
}

type ctxKey struct{}

// IssueToken подписывает HS256-токен для арендатора.
func IssueToken(tenant, secret string, ttl time.Duration) (string, error) {
	if tenant == "" {
		return "", errors.New("empty tenant code")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantCode: tenant,
		SessionID:  uuid.NewString(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken проверяет подпись и срок действия и возвращает сессию.
func ParseToken(tokenString, secret string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, err
	}
	if !token.Valid || claims.TenantCode == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{TenantCode: claims.TenantCode, SessionID: claims.SessionID}, nil
}

// SetLoginCookie выпускает токен и кладёт его в cookie ответа.
func SetLoginCookie(w http.ResponseWriter, tenant, secret string) error {
	token, err := IssueToken(tenant, secret, DefaultTokenTTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(DefaultTokenTTL),
	})
	return nil
}

// WithAuth кладёт сессию в контекст, если токен валиден.
// Запросы без токена пропускаются дальше анонимными; решение принимает хендлер.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			s, err := ParseToken(raw, secret)
			if err != nil {
				log.Debugw("rejected token", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// TokenFromRequest достаёт токен из заголовка Authorization: Bearer или из cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// WithSession возвращает контекст с сессией.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// GetSessionFromContext достаёт сессию, положенную WithAuth.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
