package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAudienceMatches(t *testing.T) {
	cases := []struct {
		name     string
		aud      any
		clientID string
		want     bool
	}{
		{name: "string match", aud: "client", clientID: "client", want: true},
		{name: "string mismatch", aud: "client", clientID: "other", want: false},
		{name: "slice any match", aud: []any{"other", "client"}, clientID: "client", want: true},
		{name: "slice any mismatch", aud: []any{"other", 1}, clientID: "client", want: false},
		{name: "slice string match", aud: []string{"client", "alt"}, clientID: "client", want: true},
		{name: "nil", aud: nil, clientID: "client", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := audienceMatches(tc.aud, tc.clientID); got != tc.want {
				t.Fatalf("audienceMatches(%v, %q) = %v, want %v", tc.aud, tc.clientID, got, tc.want)
			}
		})
	}
}

func TestIssuerMatches(t *testing.T) {
	if !issuerMatches("accounts.google.com", "https://accounts.google.com") {
		t.Fatal("expected schemeless issuer to match")
	}
	if issuerMatches("", "https://accounts.google.com") {
		t.Fatal("empty issuer must not match")
	}
	if issuerMatches("https://evil.example.com", "https://accounts.google.com") {
		t.Fatal("foreign issuer must not match")
	}
}

func newIssuer(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"jwks_uri": srv.URL + "/certs"})
	})
	mux.HandleFunc("/certs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks{Keys: []jwk{{
			Kid: "k1",
			Kty: "RSA",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestVerifyIDToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	srv := newIssuer(t, key)
	v := NewVerifier(srv.URL, "client-123").WithHTTPClient(srv.Client())

	valid := jwt.MapClaims{
		"iss":            srv.URL,
		"aud":            "client-123",
		"sub":            "g-42",
		"email":          "ada@example.com",
		"email_verified": true,
		"name":           "Ada",
		"exp":            time.Now().Add(time.Hour).Unix(),
	}

	claims, err := v.VerifyIDToken(context.Background(), signToken(t, key, "k1", valid))
	if err != nil {
		t.Fatalf("VerifyIDToken: %v", err)
	}
	if claims.Subject != "g-42" || claims.Email != "ada@example.com" || !claims.EmailVerified {
		t.Fatalf("unexpected claims %+v", claims)
	}

	wrongAud := jwt.MapClaims{}
	for k, val := range valid {
		wrongAud[k] = val
	}
	wrongAud["aud"] = "someone-else"
	if _, err := v.VerifyIDToken(context.Background(), signToken(t, key, "k1", wrongAud)); err == nil {
		t.Fatal("expected audience rejection")
	}

	expired := jwt.MapClaims{}
	for k, val := range valid {
		expired[k] = val
	}
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	if _, err := v.VerifyIDToken(context.Background(), signToken(t, key, "k1", expired)); err == nil {
		t.Fatal("expected expiry rejection")
	}

	if _, err := v.VerifyIDToken(context.Background(), signToken(t, key, "unknown", valid)); err == nil {
		t.Fatal("expected unknown kid rejection")
	}
}
