package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"platewise/internal/database"
)

func testRepo(t *testing.T) *UserRepository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db.SQL)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SignupAndAuthenticate", func(t *testing.T) {
		repo := testRepo(t)

		user, err := repo.Create(ctx, "Alice@Example.com", "correct horse")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if user.Email != "alice@example.com" {
			t.Errorf("Expected normalized email, got %q", user.Email)
		}
		if user.ID == "" {
			t.Error("Expected a non-empty user ID")
		}

		got, err := repo.Authenticate(ctx, "alice@example.com", "correct horse")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("Expected user %s, got %s", user.ID, got.ID)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		repo := testRepo(t)
		if _, err := repo.Create(ctx, "bob@example.com", "password123"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		_, err := repo.Authenticate(ctx, "bob@example.com", "wrong password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		repo := testRepo(t)
		_, err := repo.Authenticate(ctx, "nobody@example.com", "whatever1")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := testRepo(t)
		if _, err := repo.Create(ctx, "carol@example.com", "password123"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		_, err := repo.Create(ctx, "carol@example.com", "otherpassword")
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("Expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("ShortPassword", func(t *testing.T) {
		repo := testRepo(t)
		if _, err := repo.Create(ctx, "dave@example.com", "short"); err == nil {
			t.Error("Expected error for short password")
		}
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		repo := testRepo(t)
		if _, err := repo.Create(ctx, "not-an-email", "password123"); err == nil {
			t.Error("Expected error for invalid email")
		}
	})
}

func TestTokenService(t *testing.T) {
	tokens := NewTokenService("test-secret")

	t.Run("IssueAndVerify", func(t *testing.T) {
		token, err := tokens.Issue("user-1", "alice@example.com")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		userID, err := tokens.Verify(token)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if userID != "user-1" {
			t.Errorf("Expected user-1, got %s", userID)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := tokens.Issue("user-1", "alice@example.com")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		other := NewTokenService("different-secret")
		if _, err := other.Verify(token); err == nil {
			t.Error("Expected verification to fail with a different secret")
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := tokens.Verify("not-a-token"); err == nil {
			t.Error("Expected verification to fail for garbage input")
		}
	})
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokenService("test-secret")

	handler := Middleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context())))
	}))

	t.Run("ValidToken", func(t *testing.T) {
		token, err := tokens.Issue("user-42", "a@b.com")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != "user-42" {
			t.Errorf("Expected user-42 in context, got %q", rec.Body.String())
		}
	})

	t.Run("MissingHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})
}
