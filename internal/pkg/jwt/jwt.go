package jwt

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type Service interface {
	GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error)
	GenerateSSEToken(claims Claims, topic string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string, topic string) (Claims, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

// GenerateAccessToken issues a token carrying tenant claims. Tokens are
// normally minted by the identity service; this is used by tooling and tests.
func (j *JWTService) GenerateAccessToken(c Claims) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := c.toMap()
	claims["type"] = "access"
	claims["exp"] = expiresAt

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token bound to one event topic
func (j *JWTService) GenerateSSEToken(c Claims, topic string) (token string, expiresIn int, err error) {
	expiresIn = 300
	claims := c.toMap()
	claims["type"] = "sse"
	claims["topic"] = topic
	claims["exp"] = time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(claims)
	if err != nil {
		return "", 0, err
	}
	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token for the given topic
func (j *JWTService) ValidateSSEToken(tokenString string, topic string) (Claims, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if err := jwt.Validate(token, jwt.WithAcceptableSkew(30*time.Second)); err != nil {
		return Claims{}, err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return Claims{}, jwt.ErrInvalidJWT()
	}
	tokenTopic, ok := token.Get("topic")
	if !ok || tokenTopic != topic {
		return Claims{}, jwt.ErrInvalidJWT()
	}

	claims, err := claimsFromMap(token.PrivateClaims())
	if err != nil {
		return Claims{}, jwt.ErrInvalidJWT()
	}
	return claims, nil
}
