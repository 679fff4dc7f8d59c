package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Claims carries the actor identity: sub is the user id, role one of the Role values.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HS256 validation; otherwise RS256 keys come from JWKS.
	SigningKey []byte
}

// ActorIDKey is the echo context key holding the actor id for request logging.
const ActorIDKey = "actor_id"

func (cfg JWTConfig) keyFunc() jwt.Keyfunc {
	if len(cfg.SigningKey) > 0 {
		return func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	}
	url := cfg.JWKSURL
	if url == "" && cfg.Issuer != "" {
		if discovered, err := DiscoverJWKSURL(cfg.Issuer); err == nil {
			url = discovered
		}
	}
	return NewJWKSCache(url, defaultJWKSCacheTTL).keyFunc
}

func (cfg JWTConfig) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return opts
}

// ParseToken validates a bearer token and returns the actor it names.
func ParseToken(tokenStr string, keyFunc jwt.Keyfunc, opts ...jwt.ParserOption) (Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, opts...)
	if err != nil || !token.Valid {
		return Actor{}, errInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, errInvalidToken
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Actor{}, errInvalidToken
	}
	return Actor{ID: id, Role: role}, nil
}

var errInvalidToken = echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}

func setActor(c echo.Context, actor Actor) {
	c.Set(ActorIDKey, actor.ID.String())
	c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
}

// JWTMiddleware authenticates every request with a bearer token.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	keyFunc := cfg.keyFunc()
	opts := cfg.parserOptions()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}
			actor, err := ParseToken(tokenStr, keyFunc, opts...)
			if err != nil {
				return err
			}
			setActor(c, actor)
			return next(c)
		}
	}
}

// DevAuthMiddleware accepts X-Actor-ID and X-Actor-Role headers in place of a
// token. Requests that do carry an Authorization header are validated by the
// wrapped JWT middleware as usual.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	jwtMW := JWTMiddleware(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withJWT := jwtMW(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				return withJWT(c)
			}
			id, err := uuid.Parse(c.Request().Header.Get("X-Actor-ID"))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid X-Actor-ID header")
			}
			role, err := ParseRole(c.Request().Header.Get("X-Actor-Role"))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid X-Actor-Role header")
			}
			setActor(c, Actor{ID: id, Role: role})
			return next(c)
		}
	}
}

// IssueToken signs an HS256 token for actor. Used by the token command.
func IssueToken(key []byte, actor Actor, issuer, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(actor.Role),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
