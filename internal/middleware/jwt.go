package myMiddleware

import (
	"context"
	"net/http"
	"strings"

	"smartsender/internal/api"
	"smartsender/internal/apperr"
)

// 1. Context keys (exported so handlers can read them)
type contextKey string

const (
	StaffKey     contextKey = "staff_id"
	StaffNameKey contextKey = "staff_name"
	TokenKey     contextKey = "token"
)

// 2. What we need from the staff service
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (string, string, error)
}

// 3. The middleware
type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(v TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: v}
}

// 4. The handler
func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ExtractToken(r)
		if tokenString == "" {
			api.Fail(w, apperr.Unauthorized("Missing authentication token"))
			return
		}

		staffID, name, err := am.validator.ValidateToken(r.Context(), tokenString)
		if err != nil {
			api.Fail(w, apperr.Unauthorized("Invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), StaffKey, staffID)
		ctx = context.WithValue(ctx, StaffNameKey, name)
		ctx = context.WithValue(ctx, TokenKey, tokenString)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter (browsers cannot set headers on a
// websocket upgrade).
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return r.URL.Query().Get("token")
}

// StaffID returns the authenticated staff id stored by Handle.
func StaffID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(StaffKey).(string)
	return id, ok && id != ""
}

func StaffName(ctx context.Context) string {
	name, _ := ctx.Value(StaffNameKey).(string)
	return name
}

func Token(ctx context.Context) string {
	tok, _ := ctx.Value(TokenKey).(string)
	return tok
}

// WithStaff stores an identity in ctx the way Handle does. Tests and the
// websocket read loop use it to call services on behalf of a staff member.
func WithStaff(ctx context.Context, staffID, name string) context.Context {
	ctx = context.WithValue(ctx, StaffKey, staffID)
	return context.WithValue(ctx, StaffNameKey, name)
}
