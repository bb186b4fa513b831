// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package admin implements an introspection HTTP API over a running
// Broker. Every handler except the worker-kick endpoint reads through
// Broker.Snapshot and nothing else; the kick endpoint removes a worker
// through Broker.Disconnect.
package admin

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"
)

// JWTService issues and validates bearer tokens for the admin API. There
// is a single operator account (configured, not stored in a user table),
// so tokens carry only a subject, unlike a multi-tenant claims set.
type JWTService struct {
	secretKey   []byte
	issuer      string
	tokenExpiry time.Duration
}

// Claims is the JWT payload for an authenticated admin session.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// NewJWTService constructs a JWTService with the given HMAC secret.
func NewJWTService(secretKey, issuer string, expiry time.Duration) *JWTService {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &JWTService{secretKey: []byte(secretKey), issuer: issuer, tokenExpiry: expiry}
}

// GenerateToken signs a new token for username.
func (j *JWTService) GenerateToken(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenExpiry)),
			NotBefore: jwt.NewNumericDate(now),
		},
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateToken parses and verifies a bearer token.
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// PasswordService hashes and verifies the single admin password using
// Argon2id.
type PasswordService struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// NewPasswordService returns a PasswordService with OWASP-recommended
// Argon2id parameters.
func NewPasswordService() *PasswordService {
	return &PasswordService{
		memory:      64 * 1024,
		iterations:  3,
		parallelism: 2,
		saltLength:  16,
		keyLength:   32,
	}
}

// HashPassword returns an encoded Argon2id hash of password.
func (p *PasswordService) HashPassword(password string) (string, error) {
	salt := make([]byte, p.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, p.iterations, p.memory, p.parallelism, p.keyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.iterations, p.parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword reports whether password matches encodedHash.
func (p *PasswordService) VerifyPassword(password, encodedHash string) (bool, error) {
	memory, iterations, parallelism, salt, hash, err := parseHash(encodedHash)
	if err != nil {
		return false, fmt.Errorf("parse hash: %w", err)
	}
	candidate := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(hash)))
	if len(candidate) != len(hash) {
		return false, nil
	}
	var diff byte
	for i := range hash {
		diff |= hash[i] ^ candidate[i]
	}
	return diff == 0, nil
}

func parseHash(encoded string) (memory, iterations uint32, parallelism uint8, salt, hash []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return 0, 0, 0, nil, nil, fmt.Errorf("expected 6 parts, got %d", len(parts))
	}
	if parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, fmt.Errorf("unsupported hash type: %s", parts[1])
	}
	var version int
	if n, e := fmt.Sscanf(parts[2], "v=%d", &version); e != nil || n != 1 {
		return 0, 0, 0, nil, nil, fmt.Errorf("invalid version format")
	}
	if version != argon2.Version {
		return 0, 0, 0, nil, nil, fmt.Errorf("incompatible argon2 version: %d", version)
	}
	if n, e := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); e != nil || n != 3 {
		return 0, 0, 0, nil, nil, fmt.Errorf("invalid parameters format")
	}
	if salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	if hash, err = base64.StdEncoding.DecodeString(parts[5]); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("decode hash: %w", err)
	}
	return memory, iterations, parallelism, salt, hash, nil
}

type contextKey string

const claimsContextKey contextKey = "admin-claims"

func contextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts the authenticated claims set by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// RequireAuth rejects requests without a valid bearer token.
func (j *JWTService) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const bearerPrefix = "Bearer "
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			http.Error(w, "Authorization header must start with 'Bearer '", http.StatusUnauthorized)
			return
		}
		claims, err := j.ValidateToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := contextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
