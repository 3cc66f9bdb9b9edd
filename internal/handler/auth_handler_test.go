package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitreminder/internal/model"
	"habitreminder/internal/service/auth"
)

type fakeAuth struct{}

func (fakeAuth) Register(_ context.Context, in auth.RegisterInput) (*model.User, error) {
	if in.Email == "taken@example.com" {
		return nil, auth.ErrUserExists
	}
	return &model.User{ID: 1, Email: in.Email, TgID: in.TgID}, nil
}

func (fakeAuth) Login(_ context.Context, _, password string) (*auth.Tokens, error) {
	if password != "secret" {
		return nil, auth.ErrInvalidCredentials
	}
	return &auth.Tokens{Access: "a", Refresh: "r"}, nil
}

func (fakeAuth) Refresh(context.Context, string) (string, error) {
	return "", auth.ErrInvalidToken
}

func TestAuthEndpoints(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(fakeAuth{}, zap.NewNop())
	r := gin.New()
	r.POST("/register/", h.Register)
	r.POST("/token/", h.Token)
	r.POST("/token/refresh/", h.Refresh)

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"register", "/register/", `{"email":"a@example.com","password":"x","tg_id":1}`, http.StatusCreated},
		{"register duplicate", "/register/", `{"email":"taken@example.com","password":"x","tg_id":1}`, http.StatusBadRequest},
		{"register malformed", "/register/", `{`, http.StatusBadRequest},
		{"login", "/token/", `{"email":"a@example.com","password":"secret"}`, http.StatusOK},
		{"login wrong password", "/token/", `{"email":"a@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"login missing field", "/token/", `{"email":"a@example.com"}`, http.StatusBadRequest},
		{"refresh invalid", "/token/refresh/", `{"refresh":"junk"}`, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.target, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.status, w.Body)
			}
		})
	}
}
