package account

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testToken(t *testing.T, claims string) string {
	t.Helper()
	payload := base64.RawURLEncoding.EncodeToString([]byte(claims))
	return "eyJhbGciOiJIUzI1NiJ9." + payload + ".sig"
}

func TestLoginDecodesClaims(t *testing.T) {
	token := testToken(t, `{"userId":"u123","username":"alice"}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprintf(w, `{"token":%q}`, token)
	}))
	defer srv.Close()

	sess, err := NewClient(srv.URL).Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token != token || sess.UserID != "u123" || sess.Username != "alice" {
		t.Fatalf("session = %+v", sess)
	}
}

func TestLoginToleratesOpaqueToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":"opaque-token"}`)
	}))
	defer srv.Close()

	sess, err := NewClient(srv.URL).Login(context.Background(), "bob", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token != "opaque-token" || sess.Username != "bob" || sess.UserID != "" {
		t.Fatalf("session = %+v", sess)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
}

func TestSignupHitsSignupEndpoint(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, `{"token":"tok"}`)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Signup(context.Background(), "carol", "pw"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if path != "/api/signup" {
		t.Fatalf("path = %s", path)
	}
}

func TestDecodeClaims(t *testing.T) {
	claims, err := decodeClaims(testToken(t, `{"userId":"u9","username":"dave"}`))
	if err != nil {
		t.Fatalf("decodeClaims: %v", err)
	}
	if claims.UserID != "u9" || claims.Username != "dave" {
		t.Fatalf("claims = %+v", claims)
	}

	for _, token := range []string{"", "opaque", "a.b", "x.!!!.z"} {
		if _, err := decodeClaims(token); err == nil {
			t.Fatalf("decodeClaims(%q) accepted", token)
		}
	}
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.Verify(context.Background(), "good"); err != nil {
		t.Fatalf("Verify good: %v", err)
	}
	if err := c.Verify(context.Background(), "bad"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify bad err = %v, want ErrTokenInvalid", err)
	}
}
