// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package auth verifies subject identity tokens. Deskatlas never issues
// tokens; the workplace identity provider does, and this package only
// checks signatures and binds heartbeats to the subject the token names.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/deskatlas/internal/config"
	"github.com/tomtom215/deskatlas/internal/presence"
)

var (
	// ErrInvalidToken covers expired, tampered, and malformed tokens.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrSubjectMismatch means the token is valid but names a
	// different subject than the one being reported on. A client may
	// only heartbeat for itself.
	ErrSubjectMismatch = errors.New("auth: token subject mismatch")
)

// Claims are the verified token claims. The registered subject claim
// carries the employee ID.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens against the shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a verifier from the security configuration. An
// empty or short secret is refused outright.
func NewVerifier(cfg *config.SecurityConfig) (*Verifier, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("auth: jwt secret must be at least 32 characters")
	}
	return &Verifier{secret: []byte(cfg.JWTSecret)}, nil
}

// Verify parses and validates a token, returning its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifySubject validates a token and checks that it names subjectID.
func (v *Verifier) VerifySubject(tokenString, subjectID string) error {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return err
	}
	if claims.Subject != subjectID {
		return ErrSubjectMismatch
	}
	return nil
}

type contextKey struct{}

// subjectKey carries the verified token subject through the request.
var subjectKey contextKey

// WithSubject stores the verified subject on the context.
func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectKey, subjectID)
}

// SubjectFromContext returns the verified subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}

// SubjectAuthorizer satisfies the ingest layer's authorization hook.
// HTTP middleware verifies the token and stores its subject on the
// context; this check ensures the heartbeat body agrees with it.
type SubjectAuthorizer struct{}

// AuthorizeSubject rejects heartbeats whose subject does not match the
// verified token subject on the context.
func (SubjectAuthorizer) AuthorizeSubject(ctx context.Context, subjectID string) error {
	verified, ok := SubjectFromContext(ctx)
	if !ok {
		return presence.ErrAuthRequired
	}
	if verified != subjectID {
		return ErrSubjectMismatch
	}
	return nil
}
