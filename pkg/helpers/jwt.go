package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceTokenManager issues and validates the bearer tokens internal
// callers (web app backend, analytics sync) present to this service.
type ServiceTokenManager struct {
	Secret []byte
	TTL    time.Duration
}

var defaultManager *ServiceTokenManager

func NewServiceTokenManager(secret string, ttl time.Duration) *ServiceTokenManager {
	m := &ServiceTokenManager{Secret: []byte(secret), TTL: ttl}
	defaultManager = m
	return m
}

// DefaultServiceTokens returns the last constructed manager (used for
// auto-wiring routes)
func DefaultServiceTokens() *ServiceTokenManager { return defaultManager }

type ServiceClaims struct {
	Service string `json:"svc"`
	jwt.RegisteredClaims
}

func (m *ServiceTokenManager) Generate(service string) (string, time.Time, error) {
	exp := time.Now().Add(m.TTL)
	claims := &ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

func (m *ServiceTokenManager) Parse(tokenStr string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
