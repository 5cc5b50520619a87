package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mzbr/illustbox/internal/handler"
	"github.com/mzbr/illustbox/internal/report"
	"github.com/mzbr/illustbox/internal/repository/sqlite"
	"github.com/mzbr/illustbox/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests"

func newTestEnv(t *testing.T) (*handler.UserHandler, *service.AuthService, *sqlite.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Use cost 4 for fast tests; keep error reports out of test output.
	auth := service.NewAuthService(db.Users(), testJWTSecret, 4)
	collection := service.NewCollectionService(db.Users(), db.Illusts(), db.Stages())
	reporter := report.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	limiter := service.NewTokenBucket(1000, 1000)

	return handler.NewUserHandler(auth, collection, reporter, limiter, false), auth, db
}

func registerAndLogin(t *testing.T, auth *service.AuthService, email, password string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := auth.Register(ctx, email, password, "Test User", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, _, err := auth.Login(ctx, email, password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestRequireAuth_ValidToken(t *testing.T) {
	_, auth, _ := newTestEnv(t)
	token := registerAndLogin(t, auth, "valid@example.com", "password123")

	var gotEmail string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := handler.UserFromContext(r.Context()); user != nil {
			gotEmail = user.Email
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.AddCookie(&http.Cookie{Name: "x_auth", Value: token})
	w := httptest.NewRecorder()

	handler.RequireAuth(auth, inner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotEmail != "valid@example.com" {
		t.Fatalf("expected user valid@example.com in context, got %q", gotEmail)
	}
}

func TestRequireAuth_HeaderFallback(t *testing.T) {
	_, auth, _ := newTestEnv(t)
	token := registerAndLogin(t, auth, "header@example.com", "password123")

	var sawUser bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUser = handler.UserFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.Header.Set("X-Auth", token)
	w := httptest.NewRecorder()

	handler.RequireAuth(auth, inner).ServeHTTP(w, req)

	if !sawUser {
		t.Fatal("expected header-borne token to authenticate")
	}
}

func TestRequireAuth_MissingToken(t *testing.T) {
	_, auth, _ := newTestEnv(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	w := httptest.NewRecorder()

	handler.RequireAuth(auth, inner).ServeHTTP(w, req)

	// Failures answer 200 with the soft-failure body; clients key off isAuth.
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["isAuth"] != false || body["error"] != true {
		t.Fatalf("expected isAuth:false error:true, got %v", body)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	_, auth, _ := newTestEnv(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.AddCookie(&http.Cookie{Name: "x_auth", Value: "invalid.jwt.token"})
	w := httptest.NewRecorder()

	handler.RequireAuth(auth, inner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["isAuth"] != false {
		t.Fatalf("expected isAuth:false, got %v", body)
	}
}

func TestRequireAuth_SupersededToken(t *testing.T) {
	_, auth, _ := newTestEnv(t)
	ctx := context.Background()

	first := registerAndLogin(t, auth, "super@example.com", "password123")
	// A second login replaces the stored token.
	if _, _, err := auth.Login(ctx, "super@example.com", "password123"); err != nil {
		t.Fatalf("second Login: %v", err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.AddCookie(&http.Cookie{Name: "x_auth", Value: first})
	w := httptest.NewRecorder()

	handler.RequireAuth(auth, inner).ServeHTTP(w, req)

	body := decodeBody(t, w)
	if body["isAuth"] != false {
		t.Fatalf("expected superseded token to be rejected, got %v", body)
	}
}
