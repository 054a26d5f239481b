package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/botforge/botforge/internal/request"
	"github.com/botforge/botforge/internal/services/oidc"
)

const testIssuer = "https://auth.example.com"

func authTestKeys(t *testing.T) (jwk.Key, *httptest.Server) {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	priv, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("failed to wrap key: %v", err)
	}
	if err := priv.Set(jwk.KeyIDKey, "test-key"); err != nil {
		t.Fatalf("failed to set kid: %v", err)
	}
	if err := priv.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		t.Fatalf("failed to set alg: %v", err)
	}

	pub, err := priv.PublicKey()
	if err != nil {
		t.Fatalf("failed to derive public key: %v", err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		t.Fatalf("failed to add key to set: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)

	return priv, srv
}

func authSignedToken(t *testing.T, priv jwk.Key) string {
	t.Helper()

	tok := jwt.New()
	for k, v := range map[string]any{
		jwt.IssuerKey:     testIssuer,
		jwt.SubjectKey:    "user-1",
		jwt.IssuedAtKey:   time.Now(),
		jwt.ExpirationKey: time.Now().Add(time.Hour),
		"email":           "a@b.c",
		"name":            "Test User",
	} {
		if err := tok.Set(k, v); err != nil {
			t.Fatalf("failed to set claim %s: %v", k, err)
		}
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, priv))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

func TestAuthValidToken(t *testing.T) {
	priv, srv := authTestKeys(t)
	verifier := oidc.NewVerifier(oidc.NewJWKSManager(), testIssuer)

	var seenUserID string
	handler := Auth(verifier, srv.URL)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := request.UserFromContext(r)
		if user != nil {
			seenUserID = user.ID
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	req.Header.Set("Authorization", "Bearer "+authSignedToken(t, priv))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seenUserID != "user-1" {
		t.Errorf("expected user-1 in context, got %q", seenUserID)
	}
}

func TestAuthRejectsRequests(t *testing.T) {
	_, srv := authTestKeys(t)
	verifier := oidc.NewVerifier(oidc.NewJWKSManager(), testIssuer)

	handler := Auth(verifier, srv.URL)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "malformed header", header: "Token abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/chats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}

			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if success, _ := body["success"].(bool); success {
				t.Error("expected success=false in error body")
			}
		})
	}
}
