package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Session/JWT primitives =====

type AuthManager struct {
	secret []byte
	cfg    config.AuthConfig
}

func NewAuthManager(cfg config.AuthConfig) *AuthManager {
	return &AuthManager{secret: []byte(cfg.JWTSecret), cfg: cfg}
}

// Claims carries the session id as jti and the user id as sub.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Mint signs a token for s and sets it as the session cookie.
func (a *AuthManager) Mint(w http.ResponseWriter, s *model.Session) (string, error) {
	claims := Claims{
		Role: s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			NotBefore: jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    signed,
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return signed, nil
}

func (a *AuthManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*Claims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	if c, err := r.Cookie(a.cfg.CookieName); err == nil && c.Value != "" {
		return a.parse(c.Value)
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(tok string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ===== Request principal =====

type Principal struct {
	UserID    string
	SessionID string
	Role      model.Role
}

func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// requireUser accepts a valid token whose server-side session is still live.
// The role comes from the session, not the token.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			s.writeError(w, r, domain.ErrUnauthorized)
			return
		}
		sess, err := s.users.CheckSession(r.Context(), claims.ID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				s.auth.Clear(w)
			}
			s.writeError(w, r, err)
			return
		}
		if sess.UserID != claims.Subject {
			s.writeError(w, r, domain.ErrUnauthorized)
			return
		}

		ctx := withPrincipal(r.Context(), Principal{UserID: sess.UserID, SessionID: sess.ID, Role: sess.Role})
		ctx = logging.WithUserID(ctx, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin must run after requireUser.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok {
			s.writeError(w, r, domain.ErrUnauthorized)
			return
		}
		if !p.IsAdmin() {
			s.writeError(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
