package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/examprep-pro/examprep/internal/exam"
	"github.com/examprep-pro/examprep/internal/rbac"
)

func TestTokenRoundTrip(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT(7, "ivy", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.UserID != 7 || c.Username != "ivy" || c.Role != "admin" {
		t.Errorf("claims = %+v", c)
	}

	if _, err := NewAuthService("other-secret").Parse(tok); err == nil {
		t.Error("token signed with a different secret must not verify")
	}
	if _, err := a.Parse("not.a.token"); err == nil {
		t.Error("garbage must not parse")
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT(3, "jo", "student")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotClaims *Claims
	var gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = ClaimsFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotClaims == nil || gotClaims.UserID != 3 || gotRole != "student" {
		t.Errorf("context carries claims %+v role %q", gotClaims, gotRole)
	}

	for _, header := range []string{"", "Bearer garbage", "Basic dXNlcg=="} {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q = %d, want 401", header, rec.Code)
		}
	}
}

func TestLoginAndRegister(t *testing.T) {
	a := NewAuthService("test-secret")
	store := exam.NewInMemoryStore()

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if _, err := store.CreateUser(context.Background(), exam.User{
		Username: "kai", Email: "kai@example.com", PasswordHash: string(hash),
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	post := func(h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
		b, _ := json.Marshal(body)
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest("POST", "/", bytes.NewReader(b)))
		return rec
	}

	rec := post(LoginHandler(a, store), map[string]string{"email": "kai@example.com", "password": "hunter22"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.AccessToken == "" {
		t.Fatalf("login response: %v %s", err, rec.Body.String())
	}
	if c, err := a.Parse(out.AccessToken); err != nil || c.Username != "kai" || c.Role != "student" {
		t.Errorf("login token claims = %+v, %v", c, err)
	}

	rec = post(LoginHandler(a, store), map[string]string{"email": "kai@example.com", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", rec.Code)
	}

	rec = post(RegisterHandler(a, store), map[string]string{"username": "lea", "email": "lea@example.com", "password": "longenough"})
	if rec.Code != http.StatusCreated {
		t.Errorf("register = %d: %s", rec.Code, rec.Body.String())
	}
	rec = post(RegisterHandler(a, store), map[string]string{"username": "lea2", "email": "lea@example.com", "password": "longenough"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate email = %d, want 409", rec.Code)
	}
	rec = post(RegisterHandler(a, store), map[string]string{"username": "mo", "email": "mo@example.com", "password": "short"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password = %d, want 400", rec.Code)
	}
}
