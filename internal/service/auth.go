package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

const defaultTokenTTL = 24 * time.Hour

var ErrEmptySecret = errors.New("jwt secret key is empty")

// AuthService - issues and verifies the tokens that carry a player identity.
type AuthService interface {
	GenerateToken(identity entity.Identity) (string, error)
	ParseToken(token string) (entity.Identity, error)
}

type authServiceImpl struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthService(secretKey string, ttl time.Duration) (AuthService, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}

	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &authServiceImpl{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func (that *authServiceImpl) GenerateToken(identity entity.Identity) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("%w: empty identity", apperror.ErrInvalidToken)
	}

	now := that.now()
	claims := jwt.RegisteredClaims{
		Subject:   string(identity),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(that.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(that.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (that *authServiceImpl) ParseToken(tokenString string) (entity.Identity, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return that.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(that.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", apperror.ErrInvalidToken)
	}

	return entity.Identity(claims.Subject), nil
}
