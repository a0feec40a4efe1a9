package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestDevMode(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	p, err := v.Verify("alice:Dispatcher")
	if err != nil {
		t.Fatal(err)
	}
	if p.Subject != "alice" || p.Role != "dispatcher" {
		t.Fatalf("principal=%+v", p)
	}
	if _, err := v.Verify("no-role"); err == nil {
		t.Fatal("token without role should fail")
	}
}

func signJWT(t *testing.T, secret, header, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding.EncodeToString
	signing := enc([]byte(header)) + "." + enc([]byte(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return signing + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func TestHMACMode(t *testing.T) {
	v := &Verifier{Mode: "hmac", HMACSecret: []byte("topsecret"), RoleClaim: "role", SubClaim: "sub"}

	tok := signJWT(t, "topsecret", `{"alg":"HS256","typ":"JWT"}`, `{"sub":"bob","role":"Admin"}`)
	p, err := v.Verify(tok)
	if err != nil {
		t.Fatal(err)
	}
	if p.Subject != "bob" || p.Role != "admin" {
		t.Fatalf("principal=%+v", p)
	}

	if _, err := v.Verify(signJWT(t, "wrongkey", `{"alg":"HS256"}`, `{"sub":"bob"}`)); err == nil {
		t.Fatal("bad signature accepted")
	}
	if _, err := v.Verify(signJWT(t, "topsecret", `{"alg":"none"}`, `{"sub":"bob"}`)); err == nil {
		t.Fatal("alg none accepted")
	}
	if _, err := v.Verify("not.a.jwt.at.all"); err == nil {
		t.Fatal("malformed token accepted")
	}

	noRole := signJWT(t, "topsecret", `{"alg":"HS256"}`, `{"sub":"carol"}`)
	p, err = v.Verify(noRole)
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != "viewer" {
		t.Fatalf("missing role should default to viewer, got %q", p.Role)
	}
}

func TestVerifierFromEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "hmac")
	t.Setenv("AUTH_HMAC_SECRET", "k")
	t.Setenv("AUTH_ROLE_CLAIM", "scope")
	v := NewVerifierFromEnv()
	if v.Mode != "hmac" || string(v.HMACSecret) != "k" || v.RoleClaim != "scope" || v.SubClaim != "sub" {
		t.Fatalf("verifier=%+v", v)
	}
}
