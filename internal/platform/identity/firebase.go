package identity

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCertTTL = time.Hour
	// minRefetch bounds how often an unknown kid may force a fetch before
	// the cached set expires.
	minRefetch = time.Minute
)

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks Firebase Auth ID tokens: RS256 signatures against
// Google's published x509 certificates, audience equal to the project id,
// issuer https://securetoken.google.com/<project>, a non-empty subject and
// an unexpired token. Certificates are cached for the max-age Google sends.
type FirebaseVerifier struct {
	projectID string
	certsURL  string
	client    *http.Client

	fetch   singleflight.Group
	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
	expires time.Time
	now     func() time.Time
}

func NewFirebaseVerifier(projectID, certsURL string, client *http.Client) *FirebaseVerifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &FirebaseVerifier{
		projectID: projectID,
		certsURL:  certsURL,
		client:    client,
		now:       time.Now,
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (string, error) {
	if v.projectID == "" {
		return "", errors.New("firebase project id is not configured")
	}

	tok, err := jwt.ParseWithClaims(raw, &firebaseClaims{}, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", err
	}
	claims, ok := tok.Claims.(*firebaseClaims)
	if !ok || !tok.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has an empty subject")
	}
	return claims.Email, nil
}

// key returns the public key for kid. The certificate set is refetched when
// it has expired, or when kid is unknown and the last fetch is older than
// minRefetch. Concurrent refreshes share one fetch.
func (v *FirebaseVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	k, ok := v.keys[kid]
	now := v.now()
	fresh := now.Before(v.expires)
	recent := now.Sub(v.fetched) < minRefetch
	v.mu.RUnlock()
	if ok && fresh {
		return k, nil
	}
	if !ok && fresh && recent {
		return nil, fmt.Errorf("no certificate for kid %q", kid)
	}

	_, err, _ := v.fetch.Do("certs", func() (any, error) {
		return nil, v.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("no certificate for kid %q", kid)
}

func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	v.fetched = v.now()
	v.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch certificates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch certificates: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode certificates: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		k, err := parseCertKey(certPEM)
		if err != nil {
			return fmt.Errorf("certificate %s: %w", kid, err)
		}
		keys[kid] = k
	}

	v.mu.Lock()
	v.keys = keys
	v.expires = v.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	v.mu.Unlock()
	return nil
}

func parseCertKey(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, errors.New("no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	k, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate key is not RSA")
	}
	return k, nil
}

// maxAge reads max-age from a Cache-Control header.
func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if secs, ok := strings.CutPrefix(directive, "max-age="); ok {
			if n, err := strconv.Atoi(secs); err == nil && n > 0 {
				return time.Duration(n) * time.Second
			}
		}
	}
	return defaultCertTTL
}
