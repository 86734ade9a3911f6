package jwtx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxJWKSBytes = 1 << 20

// Source loads an upstream JWKS into a KeySet, either from a URL or from
// inline JSON. Refresh is called once at start-up and then periodically.
type Source struct {
	URL    string
	Inline string
	Client *http.Client
	Keys   *KeySet
}

// NewSource returns a Source writing into keys. At most one of url and
// inline is expected to be set.
func NewSource(url, inline string, keys *KeySet) *Source {
	return &Source{
		URL:    strings.TrimSpace(url),
		Inline: strings.TrimSpace(inline),
		Client: &http.Client{Timeout: 10 * time.Second},
		Keys:   keys,
	}
}

// Configured reports whether an upstream key source was given.
func (s *Source) Configured() bool {
	return s.URL != "" || s.Inline != ""
}

// Refresh reloads the key set. On failure the previous keys stay in place.
func (s *Source) Refresh(ctx context.Context) error {
	var (
		jwks JWKS
		err  error
	)
	switch {
	case s.Inline != "":
		err = json.Unmarshal([]byte(s.Inline), &jwks)
	case s.URL != "":
		jwks, err = s.fetch(ctx)
	default:
		return errors.New("jwtx: no JWKS source configured")
	}
	if err != nil {
		return fmt.Errorf("jwtx: load jwks: %w", err)
	}
	if len(jwks.Keys) == 0 {
		return errors.New("jwtx: jwks has no keys")
	}
	return s.Keys.ResetFromJWKS(jwks)
}

func (s *Source) fetch(ctx context.Context) (JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return JWKS{}, err
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return JWKS{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JWKS{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&jwks); err != nil {
		return JWKS{}, err
	}
	return jwks, nil
}
