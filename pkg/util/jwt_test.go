package util

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	t.Parallel()

	tok, err := GenerateJWT(42, TokenTypeAccess, "s3cret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	id, err := ParseJWT(tok, TokenTypeAccess, "s3cret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if id != 42 {
		t.Fatalf("user id = %d, want 42", id)
	}
}

func TestJWTRejects(t *testing.T) {
	t.Parallel()

	refresh, _ := GenerateJWT(1, TokenTypeRefresh, "s3cret", time.Minute)
	if _, err := ParseJWT(refresh, TokenTypeAccess, "s3cret"); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}

	access, _ := GenerateJWT(1, TokenTypeAccess, "s3cret", time.Minute)
	if _, err := ParseJWT(access, TokenTypeAccess, "other"); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}

	expired, _ := GenerateJWT(1, TokenTypeAccess, "s3cret", -time.Minute)
	if _, err := ParseJWT(expired, TokenTypeAccess, "s3cret"); err == nil {
		t.Fatalf("expired token accepted")
	}

	if _, err := ParseJWT("not-a-token", TokenTypeAccess, "s3cret"); err == nil {
		t.Fatalf("garbage accepted")
	}
}

func TestExtractToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                 "",
		"Bearer abc":       "abc",
		"bearer   abc":     "abc",
		"Token abc":        "",
		"Bearer abc extra": "",
	}
	for header, want := range cases {
		r := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := ExtractToken(r); got != want {
			t.Fatalf("ExtractToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2" {
		t.Fatalf("password stored in clear")
	}
	if !CheckPassword("hunter2", hash) {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword("hunter3", hash) {
		t.Fatalf("wrong password accepted")
	}
}
