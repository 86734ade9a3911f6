package jwtx_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/aussiebroadwan/twofactor/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T) *jwtx.Signer {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519PEM()
	require.NoError(t, err)
	s, err := jwtx.NewSignerFromPEM(pemKey)
	require.NoError(t, err)
	return s
}

func TestSignAndVerify(t *testing.T) {
	s := newSigner(t)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(s))
	require.True(t, keys.IsReady())

	now := time.Now()
	claims := jwtx.NewClaims("user-1", "twofactor", []string{"app"}, []string{jwtx.AMROTP}, time.Minute, now)
	claims.SecondFactor = "authenticator"

	token, err := s.Sign(claims)
	require.NoError(t, err)

	v := jwtx.NewVerifier(jwtx.VerifyOptions{Issuers: []string{"twofactor"}, Audience: []string{"app"}}, keys)
	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.True(t, got.HasAMR(jwtx.AMROTP))
	require.False(t, got.HasAMR(jwtx.AMRPassword))
	require.Equal(t, "authenticator", got.SecondFactor)
	require.Len(t, got.ID, 26)
}

func TestVerify_Rejects(t *testing.T) {
	s := newSigner(t)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(s))
	now := time.Now()

	sign := func(c jwtx.Claims) string {
		token, err := s.Sign(c)
		require.NoError(t, err)
		return token
	}

	v := jwtx.NewVerifier(jwtx.VerifyOptions{Issuers: []string{"a", "b"}, Audience: []string{"app"}}, keys)

	t.Run("issuer", func(t *testing.T) {
		_, err := v.Verify(sign(jwtx.NewClaims("u", "c", []string{"app"}, nil, time.Minute, now)))
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("second accepted issuer", func(t *testing.T) {
		_, err := v.Verify(sign(jwtx.NewClaims("u", "b", []string{"app"}, nil, time.Minute, now)))
		require.NoError(t, err)
	})

	t.Run("audience", func(t *testing.T) {
		_, err := v.Verify(sign(jwtx.NewClaims("u", "a", []string{"other"}, nil, time.Minute, now)))
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := v.Verify(sign(jwtx.NewClaims("u", "a", []string{"app"}, nil, time.Minute, now.Add(-time.Hour))))
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("leeway", func(t *testing.T) {
		lenient := jwtx.NewVerifier(jwtx.VerifyOptions{Leeway: time.Minute, Now: func() time.Time { return now.Add(90 * time.Second) }}, keys)
		_, err := lenient.Verify(sign(jwtx.NewClaims("u", "a", nil, nil, time.Minute, now)))
		require.NoError(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := v.Verify(sign(jwtx.NewClaims("", "a", []string{"app"}, nil, time.Minute, now)))
		require.Error(t, err)
	})

	t.Run("unknown kid", func(t *testing.T) {
		other := newSigner(t)
		token, err := other.Sign(jwtx.NewClaims("u", "a", []string{"app"}, nil, time.Minute, now))
		require.NoError(t, err)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("alg none", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwtx.NewClaims("u", "a", []string{"app"}, nil, time.Minute, now))
		tok.Header["kid"] = s.KID()
		str, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Verify(str)
		require.Error(t, err)
	})
}

func TestVerify_UpstreamAlgorithms(t *testing.T) {
	now := time.Now()
	claims := jwtx.NewClaims("u", "idp", nil, []string{jwtx.AMRPassword}, time.Minute, now)

	t.Run("RS256", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		keys := jwtx.NewKeySet()
		require.NoError(t, keys.AddJWK(jwtx.JWK{
			Kty: "RSA", Kid: "rsa-1", Alg: "RS256",
			N: base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E: base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}))

		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "rsa-1"
		str, err := tok.SignedString(key)
		require.NoError(t, err)

		got, err := jwtx.NewVerifier(jwtx.VerifyOptions{}, keys).Verify(str)
		require.NoError(t, err)
		require.True(t, got.HasAMR(jwtx.AMRPassword))
	})

	t.Run("ES256", func(t *testing.T) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		x := make([]byte, 32)
		y := make([]byte, 32)
		key.X.FillBytes(x)
		key.Y.FillBytes(y)

		keys := jwtx.NewKeySet()
		require.NoError(t, keys.AddJWK(jwtx.JWK{
			Kty: "EC", Kid: "ec-1", Crv: "P-256",
			X: base64.RawURLEncoding.EncodeToString(x),
			Y: base64.RawURLEncoding.EncodeToString(y),
		}))

		tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
		tok.Header["kid"] = "ec-1"
		str, err := tok.SignedString(key)
		require.NoError(t, err)

		_, err = jwtx.NewVerifier(jwtx.VerifyOptions{}, keys).Verify(str)
		require.NoError(t, err)
	})

	t.Run("key type must match alg", func(t *testing.T) {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		keys := jwtx.NewKeySet()
		require.NoError(t, keys.AddJWK(jwtx.NewEd25519JWK("k", pub)))

		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "k"
		str, err := tok.SignedString(key)
		require.NoError(t, err)

		_, err = jwtx.NewVerifier(jwtx.VerifyOptions{}, keys).Verify(str)
		require.Error(t, err)
	})
}

func TestVerifier_SearchesSetsInOrder(t *testing.T) {
	local, upstream := newSigner(t), newSigner(t)
	localKeys, upstreamKeys := jwtx.NewKeySet(), jwtx.NewKeySet()
	require.NoError(t, localKeys.AddSigner(local))
	require.NoError(t, upstreamKeys.AddSigner(upstream))

	v := jwtx.NewVerifier(jwtx.VerifyOptions{}, localKeys, upstreamKeys)
	for _, s := range []*jwtx.Signer{local, upstream} {
		token, err := s.Sign(jwtx.NewClaims("u", "x", nil, nil, time.Minute, time.Now()))
		require.NoError(t, err)
		_, err = v.Verify(token)
		require.NoError(t, err)
	}
}

func TestSigner_StableKID(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519PEM()
	require.NoError(t, err)

	a, err := jwtx.NewSignerFromPEM(pemKey)
	require.NoError(t, err)
	b, err := jwtx.NewSignerFromPEM(pemKey)
	require.NoError(t, err)

	require.Equal(t, a.KID(), b.KID())
	require.Equal(t, "EdDSA", a.Alg())
	require.Equal(t, a.KID(), a.PublicJWK().Kid)
}

func TestKeySet_ResetFromJWKS(t *testing.T) {
	keys := jwtx.NewKeySet()
	first := newSigner(t)
	require.NoError(t, keys.AddSigner(first))

	second := newSigner(t)
	require.NoError(t, keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{second.PublicJWK()}}))

	_, err := keys.Get(first.KID())
	require.ErrorIs(t, err, jwtx.ErrNoKey)
	_, err = keys.Get(second.KID())
	require.NoError(t, err)

	// A bad key leaves the set untouched.
	err = keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{{Kty: "oct", Kid: "x"}}})
	require.Error(t, err)
	require.Len(t, keys.PublicJWKS().Keys, 1)
}

func TestSource_Refresh(t *testing.T) {
	s := newSigner(t)
	body, err := json.Marshal(jwtx.JWKS{Keys: []jwtx.JWK{s.PublicJWK()}})
	require.NoError(t, err)

	t.Run("url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		}))
		defer srv.Close()

		keys := jwtx.NewKeySet()
		src := jwtx.NewSource(srv.URL, "", keys)
		require.True(t, src.Configured())
		require.NoError(t, src.Refresh(t.Context()))
		_, err := keys.Get(s.KID())
		require.NoError(t, err)
	})

	t.Run("inline", func(t *testing.T) {
		keys := jwtx.NewKeySet()
		require.NoError(t, jwtx.NewSource("", string(body), keys).Refresh(t.Context()))
		require.True(t, keys.IsReady())
	})

	t.Run("upstream error keeps keys", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		keys := jwtx.NewKeySet()
		require.NoError(t, keys.AddSigner(s))
		require.Error(t, jwtx.NewSource(srv.URL, "", keys).Refresh(t.Context()))
		require.True(t, keys.IsReady())
	})

	t.Run("unconfigured", func(t *testing.T) {
		src := jwtx.NewSource("", "", jwtx.NewKeySet())
		require.False(t, src.Configured())
		require.Error(t, src.Refresh(t.Context()))
	})
}
