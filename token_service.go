package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// JWTTokenService implements the TokenService interface with HS256 signed
// registered claims. The subject claim carries the staff email.
type JWTTokenService struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	logger          Logger
}

var _ TokenService = (*JWTTokenService)(nil)

// NewTokenService creates a new TokenService instance. tokenExpiration is in
// hours; zero issues tokens without an exp claim, which then stay valid for
// the lifetime of the signing key.
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, logger Logger) *JWTTokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &JWTTokenService{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		logger:          logger,
	}
}

// Issue derives a signed token asserting the given email claim.
func (ts *JWTTokenService) Issue(email string) (string, error) {
	if email == "" {
		return "", errors.New("email must not be empty", errors.CategoryBadInput)
	}

	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Issuer:   ts.issuer,
		Subject:  email,
		IssuedAt: jwt.NewNumericDate(now),
		ID:       uuid.NewString(),
	}

	if ts.tokenExpiration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a token string, returning the email it was
// issued for. It has no side effects.
func (ts *JWTTokenService) Verify(tokenString string) (string, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verify could not decode claims")
		return "", ErrTokenMalformed
	}

	if claims.Subject == "" {
		return "", ErrTokenMalformed
	}

	return claims.Subject, nil
}
