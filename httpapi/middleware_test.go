package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"agencycrm/activity"
	"agencycrm/auth"
)

type fakeVerifier struct {
	userID string
	role   auth.Role
	user   *auth.User
	err    error
}

func (f *fakeVerifier) VerifyToken(token string) (string, auth.Role, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.userID, f.role, nil
}

func (f *fakeVerifier) GetUserByID(ctx context.Context, userID string) (*auth.User, error) {
	if f.user == nil {
		return nil, auth.ErrUserNotFound
	}
	return f.user, nil
}

func TestAuthContext(t *testing.T) {
	verifier := &fakeVerifier{
		userID: "user-1",
		role:   auth.RoleManager,
		user:   &auth.User{ID: "user-1", FirstName: "Mona", LastName: "Manager"},
	}

	var got activity.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatal("expected actor on context")
		}
		got = actor
		w.WriteHeader(http.StatusOK)
	})

	handler := AuthContext(verifier)(next)

	r := httptest.NewRequest("GET", "/api/activities", nil)
	r.Header.Set("Authorization", "Bearer some-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.ID != "user-1" || got.Role != auth.RoleManager || got.FullName() != "Mona Manager" {
		t.Fatalf("unexpected actor: %+v", got)
	}
}

func TestAuthContextRejectsMissingOrBadToken(t *testing.T) {
	deny := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	})

	// No Authorization header at all.
	handler := AuthContext(&fakeVerifier{})(deny)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/activities", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", w.Code)
	}

	// Verifier rejects the token.
	handler = AuthContext(&fakeVerifier{err: errors.New("auth: parse token: bad signature")})(deny)
	r := httptest.NewRequest("GET", "/api/activities", nil)
	r.Header.Set("Authorization", "Bearer forged")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}

	// Token is fine but the user is gone.
	handler = AuthContext(&fakeVerifier{userID: "user-1", role: auth.RoleAgent})(deny)
	r = httptest.NewRequest("GET", "/api/activities", nil)
	r.Header.Set("Authorization", "Bearer stale")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", w.Code)
	}
}

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&activity.ValidationError{Fields: []activity.FieldError{{Field: "action", Message: "required"}}}, http.StatusBadRequest},
		{activity.ErrNotFound, http.StatusNotFound},
		{activity.ErrAccessDenied, http.StatusForbidden},
		{errors.New("activity: list: connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		writeServiceError(w, tc.err)
		if w.Code != tc.code {
			t.Fatalf("error %v mapped to %d, want %d", tc.err, w.Code, tc.code)
		}
	}
}
