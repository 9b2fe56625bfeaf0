package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/lifeembedding/lifeembedding/config"
)

const JwtAlg = "HS256"

const tokenSubject = "lifeembedding-api"

var ErrSecretNotSet = errors.New(
	"auth secret not set. ensure LIFEEMBEDDING_AUTH_SECRET is set in your environment",
)

func tokenAuth(cfg *config.Config) (*jwtauth.JWTAuth, error) {
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		return nil, ErrSecretNotSet
	}
	return jwtauth.New(JwtAlg, secret, nil), nil
}

// GenerateJWT returns a signed token for API clients. The token does not expire.
func GenerateJWT(cfg *config.Config) (string, error) {
	ta, err := tokenAuth(cfg)
	if err != nil {
		return "", err
	}

	claims := map[string]interface{}{"sub": tokenSubject}
	jwtauth.SetIssuedNow(claims)

	_, tokenString, err := ta.Encode(claims)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// JWTVerifier returns middleware that extracts and verifies a bearer token.
// Pair it with jwtauth.Authenticator to reject unauthenticated requests.
func JWTVerifier(cfg *config.Config) (func(http.Handler) http.Handler, error) {
	ta, err := tokenAuth(cfg)
	if err != nil {
		return nil, err
	}
	return jwtauth.Verifier(ta), nil
}
