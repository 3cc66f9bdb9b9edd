package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"habitreminder/internal/model"
	"habitreminder/internal/repository"
	"habitreminder/pkg/util"
)

type memUsers struct {
	mu     sync.Mutex
	byID   map[int64]*model.User
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*model.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if other.Email == u.Email || other.TgID == u.TgID {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func newTestService() *Service {
	return NewService(newMemUsers(), TokenConfig{
		Secret:     "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, zap.NewNop())
}

func register(t *testing.T, s *Service) *model.User {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{
		Email:    "Alice@Example.COM",
		Password: "s3cret",
		TgID:     555001,
		City:     "Kazan",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestRegister(t *testing.T) {
	t.Parallel()

	s := newTestService()
	u := register(t, s)

	if u.Email != "Alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3cret" {
		t.Fatalf("password not hashed")
	}

	_, err := s.Register(context.Background(), RegisterInput{Email: "alice@example.com", Password: "x", TgID: 555001})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate register err = %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	s := newTestService()
	cases := []RegisterInput{
		{Password: "x", TgID: 1},
		{Email: "a@b.c", TgID: 1},
		{Email: "a@b.c", Password: "x"},
		{Email: "a@b.c", Password: "x", TgID: 1, Phone: "1234567890123456"},
	}
	for _, in := range cases {
		if _, err := s.Register(context.Background(), in); err == nil {
			t.Fatalf("Register(%+v) accepted", in)
		}
	}
}

func TestLoginAndRefresh(t *testing.T) {
	t.Parallel()

	s := newTestService()
	u := register(t, s)

	tokens, err := s.Login(context.Background(), "Alice@EXAMPLE.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	id, err := s.Authenticate(tokens.Access)
	if err != nil || id != u.ID {
		t.Fatalf("Authenticate = %d, %v", id, err)
	}
	if _, err := s.Authenticate(tokens.Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}

	access, err := s.Refresh(context.Background(), tokens.Refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got, _ := util.ParseJWT(access, util.TokenTypeAccess, "test-secret"); got != u.ID {
		t.Fatalf("refreshed access for %d", got)
	}
	if _, err := s.Refresh(context.Background(), tokens.Access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
}

func TestLoginRejects(t *testing.T) {
	t.Parallel()

	s := newTestService()
	register(t, s)

	for _, c := range []struct{ email, password string }{
		{"Alice@example.com", "wrong"},
		{"bob@example.com", "s3cret"},
		{"", "s3cret"},
	} {
		if _, err := s.Login(context.Background(), c.email, c.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%q, %q) = %v", c.email, c.password, err)
		}
	}
}
