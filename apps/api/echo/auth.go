package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/identity"
)

const contextTokenKey = "actorToken"

// Claims represents the authorization claims transmitted via a JWT. Token
// issuance belongs to the identity provider; this layer only verifies and
// derives the acting principal.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role,omitempty"`
	Tier string `json:"tier,omitempty"`
}

// Actor derives the engine-facing principal from the claims.
func (c Claims) Actor() identity.Actor {
	a := identity.Actor{ID: c.Subject, Role: c.Role, Tier: identity.Tier(c.Tier)}
	a.Tier = a.EffectiveTier()
	return a
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GetActorClaims builds signable Claims for the actor; used by tests and the
// admin CLI, never exposed as a login endpoint.
func GetActorClaims(actor identity.Actor, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   actor.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role: actor.Role,
		Tier: string(actor.EffectiveTier()),
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextActor returns the acting principal; an anonymous free-tier actor
// when the request carries no token.
func contextActor(ctx echo.Context) identity.Actor {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return identity.Actor{Tier: identity.TierFree}
	}
	return claims.Actor()
}

// optionalJWT verifies a bearer token when present and lets tokenless
// requests through as anonymous; used on public read endpoints.
func optionalJWT(config middleware.JWTConfig) echo.MiddlewareFunc {
	verify := middleware.JWTWithConfig(config)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(ctx)
			}
			return verify(next)(ctx)
		}
	}
}
