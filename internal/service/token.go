package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleAdmin - роль, которой разрешено изменять каталоги.
const RoleAdmin = "admin"

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	accessSecret []byte
	accessTTL    time.Duration
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret string, accessTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &TokenManager{
		accessSecret: []byte(accessSecret),
		accessTTL:    accessTTL,
	}
}

// GenerateAccess выпускает access токен для субъекта с ролью.
func (m *TokenManager) GenerateAccess(subject uuid.UUID, role string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.accessTTL)

	claims := jwt.MapClaims{
		"sub":  subject.String(),
		"role": role,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ParseAccess извлекает subject и роль из access токена.
func (m *TokenManager) ParseAccess(token string) (uuid.UUID, string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, "", err
	}
	if !parsed.Valid {
		return uuid.Nil, "", errors.New("token is not valid")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	role, _ := claims["role"].(string)

	subject, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", err
	}

	return subject, role, nil
}
