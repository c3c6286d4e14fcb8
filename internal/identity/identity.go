package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

// maxResponseSize caps how much of a userinfo response body is read.
const maxResponseSize = 64 << 10

// Cache stores verified identities keyed by a session digest.
type Cache interface {
	Get(ctx context.Context, key string) (domain.Identity, bool, error)
	Set(ctx context.Context, key string, id domain.Identity, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Config struct {
	UserInfoURL string
	LoginURL    string
	Timeout     time.Duration

	// CacheTTL bounds how long a verified session is trusted without
	// asking the provider again.
	CacheTTL time.Duration
}

// Provider exchanges session tokens for identities at an OIDC-style
// userinfo endpoint.
type Provider struct {
	userInfoURL string
	loginURL    string
	timeout     time.Duration
	cacheTTL    time.Duration

	client *http.Client
	cache  Cache // optional
}

func NewProvider(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Provider{
		userInfoURL: cfg.UserInfoURL,
		loginURL:    cfg.LoginURL,
		timeout:     timeout,
		cacheTTL:    cfg.CacheTTL,
		client:      &http.Client{},
	}
}

// WithCache enables identity caching.
func (p *Provider) WithCache(c Cache) *Provider {
	p.cache = c
	return p
}

// userInfo is the provider's wire format.
type userInfo struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// Authenticate returns the identity behind token.
// An empty, rejected or expired token yields domain.ErrUnauthenticated;
// provider failures wrap domain.ErrGateway.
func (p *Provider) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	key := cacheKey(token)
	if p.cache != nil {
		id, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("component", "identity").Msg("session cache read failed")
		} else if ok {
			return id, nil
		}
	}

	id, err := p.fetch(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}

	if p.cache != nil && p.cacheTTL > 0 {
		if err := p.cache.Set(ctx, key, id, p.cacheTTL); err != nil {
			log.Warn().Err(err).Str("component", "identity").Msg("session cache write failed")
		}
	}
	return id, nil
}

// Logout forgets any cached identity for token.
func (p *Provider) Logout(ctx context.Context, token string) error {
	if p.cache == nil || token == "" {
		return nil
	}
	if err := p.cache.Delete(ctx, cacheKey(token)); err != nil {
		return fmt.Errorf("evict session: %w", err)
	}
	return nil
}

// LoginURL returns the provider login page, carrying returnTo when set.
func (p *Provider) LoginURL(returnTo string) string {
	if p.loginURL == "" || returnTo == "" {
		return p.loginURL
	}
	u, err := url.Parse(p.loginURL)
	if err != nil {
		return p.loginURL
	}
	q := u.Query()
	q.Set("redirect_uri", returnTo)
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *Provider) fetch(ctx context.Context, token string) (domain.Identity, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxTimeout, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: create userinfo request: %v", domain.ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: userinfo: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Identity{}, domain.ErrUnauthenticated
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.Identity{}, fmt.Errorf("%w: userinfo: unexpected status %d", domain.ErrGateway, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: read userinfo: %v", domain.ErrGateway, err)
	}
	var info userInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: decode userinfo: %v", domain.ErrGateway, err)
	}
	if info.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: userinfo without subject", domain.ErrUnauthenticated)
	}

	return domain.Identity{
		Subject:         info.Subject,
		Email:           info.Email,
		FirstName:       info.GivenName,
		LastName:        info.FamilyName,
		ProfileImageURL: info.Picture,
	}, nil
}

// cacheKey never stores the raw token.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
