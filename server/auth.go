//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload carried by every bearer token this server accepts.
type Claims struct {
	Sub      string `json:"sub"`
	UserID   string `json:"user_id"`
	IsActive bool   `json:"is_active"`
	jwt.RegisteredClaims
}

type contextKey int

const claimsContextKey contextKey = iota

// userFromContext returns the verified Claims attached by authMiddleware.
func userFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(Claims)
	return c, ok
}

// authMiddleware verifies the Authorization: Bearer <jwt> header by HS256
// decode with secret, rejecting inactive users with 403 and every other
// failure with 401.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			writeError(w, r, fmt.Errorf("missing bearer token: %w", ErrUnauthorized))
			return
		}

		var claims Claims
		_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.jwtSecret, nil
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("invalid token: %v: %w", err, ErrUnauthorized))
			return
		}
		if !claims.IsActive {
			writeError(w, r, fmt.Errorf("inactive user: %w", ErrForbidden))
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
