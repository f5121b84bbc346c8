package blob

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const blobAudience = "blob"

// Claims identify a blob and how to serve it
type Claims struct {
	Filename    string `json:"fn"`
	ContentType string `json:"ct"`
	jwt.RegisteredClaims
}

// Signer builds public URLs whose path carries an HMAC signed token naming the blob.
// A zero TTL produces URLs that never expire and are stable for a given blob.
type Signer struct {
	key     []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewSigner derives its own key from signingKey so blob tokens never verify as bearer
// tokens and the other way round.
func NewSigner(signingKey, baseURL string, ttl time.Duration) *Signer {
	return &Signer{
		key:     []byte("blob-url:" + signingKey),
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Token signs the blob reference
func (s *Signer) Token(key, filename, contentType string) (string, error) {
	claims := Claims{
		Filename:    filename,
		ContentType: contentType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  key,
			Audience: jwt.ClaimStrings{blobAudience},
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(s.now().Add(s.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// URL returns the public URL of the blob
func (s *Signer) URL(key, filename, contentType string) (string, error) {
	token, err := s.Token(key, filename, contentType)
	if err != nil {
		return "", fmt.Errorf("sign blob url: %w", err)
	}
	return s.baseURL + "/blobs/" + token + "/" + url.PathEscape(filename), nil
}

// Verify parses a token produced by Token
func (s *Signer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithAudience(blobAudience), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid blob token")
	}
	return claims, nil
}
