package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/diagnosis/bloodcare/internal/domain"
)

const testProject = "bloodcare-test"

type certServer struct {
	*httptest.Server
	key     *rsa.PrivateKey
	fetches atomic.Int32
}

func newCertServer(t *testing.T) *certServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	certPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	cs := &certServer{key: key}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.fetches.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=600, must-revalidate")
		json.NewEncoder(w).Encode(map[string]string{"kid-1": certPEM})
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *certServer) sign(t *testing.T, kid string, claims firebaseClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(cs.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validClaims(email string) firebaseClaims {
	now := time.Now()
	return firebaseClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://securetoken.google.com/" + testProject,
			Audience:  []string{testProject},
			Subject:   "uid-123",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestFirebaseVerifier_AcceptsValidToken(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.URL, cs.Client())

	for i := 0; i < 2; i++ {
		email, err := v.Verify(context.Background(), cs.sign(t, "kid-1", validClaims("ana@x.com")))
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if email != "ana@x.com" {
			t.Fatalf("email = %q", email)
		}
	}
	if got := cs.fetches.Load(); got != 1 {
		t.Fatalf("certificates fetched %d times, want 1", got)
	}
}

func TestFirebaseVerifier_UnknownKidDoesNotRefetchFreshSet(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.URL, cs.Client())
	clock := time.Now()
	v.now = func() time.Time { return clock }

	if _, err := v.Verify(context.Background(), cs.sign(t, "kid-1", validClaims("ana@x.com"))); err != nil {
		t.Fatalf("verify: %v", err)
	}
	for i := 0; i < 50; i++ {
		if _, err := v.Verify(context.Background(), cs.sign(t, "rogue-kid", validClaims("ana@x.com"))); err == nil {
			t.Fatalf("expected rejection of unknown kid")
		}
	}
	if got := cs.fetches.Load(); got != 1 {
		t.Fatalf("certificates fetched %d times, want 1", got)
	}

	// Past the refetch interval an unknown kid may pull a rotated set once.
	clock = clock.Add(2 * minRefetch)
	for i := 0; i < 5; i++ {
		v.Verify(context.Background(), cs.sign(t, "rogue-kid", validClaims("ana@x.com")))
	}
	if got := cs.fetches.Load(); got != 2 {
		t.Fatalf("certificates fetched %d times, want 2", got)
	}
}

func TestFirebaseVerifier_Rejects(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.URL, cs.Client())

	wrongAud := validClaims("a@x.com")
	wrongAud.Audience = []string{"other-project"}

	wrongIss := validClaims("a@x.com")
	wrongIss.Issuer = "https://example.com"

	expired := validClaims("a@x.com")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noSub := validClaims("a@x.com")
	noSub.Subject = ""

	cases := map[string]string{
		"wrong audience": cs.sign(t, "kid-1", wrongAud),
		"wrong issuer":   cs.sign(t, "kid-1", wrongIss),
		"expired":        cs.sign(t, "kid-1", expired),
		"empty subject":  cs.sign(t, "kid-1", noSub),
		"unknown kid":    cs.sign(t, "kid-9", validClaims("a@x.com")),
		"garbage":        "not.a.jwt",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), raw); err == nil {
				t.Fatalf("expected rejection")
			}
		})
	}
}

func TestHMACVerifier_RoundTrip(t *testing.T) {
	v := NewHMACVerifier("s3cret")
	tok, err := v.Issue("bo@x.com", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	email, err := v.Verify(context.Background(), tok)
	if err != nil || email != "bo@x.com" {
		t.Fatalf("verify = %q, %v", email, err)
	}

	if _, err := NewHMACVerifier("other").Verify(context.Background(), tok); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestResolver(t *testing.T) {
	v := NewHMACVerifier("s3cret")
	good, _ := v.Issue("cy@x.com", time.Minute)
	noEmail, _ := v.Issue("", time.Minute)
	r := NewResolver(v)

	email, err := r.Resolve(context.Background(), "Bearer "+good)
	if err != nil || email != "cy@x.com" {
		t.Fatalf("resolve = %q, %v", email, err)
	}

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc", "Bearer nope", "Bearer " + noEmail} {
		_, err := r.Resolve(context.Background(), header)
		if !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("header %q: err = %v, want ErrUnauthenticated", header, err)
		}
	}
}

func TestMaxAge(t *testing.T) {
	if got := maxAge("public, max-age=19302, must-revalidate"); got != 19302*time.Second {
		t.Fatalf("maxAge = %v", got)
	}
	if got := maxAge("no-cache"); got != defaultCertTTL {
		t.Fatalf("maxAge fallback = %v", got)
	}
}
