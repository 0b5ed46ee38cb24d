package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// testIdentity is the identity used across auth tests.
var testIdentity = Identity{
	ClientID:  "c1",
	TeamID:    "t1",
	Audience:  "a1",
	KeyID:     "k1",
	Algorithm: "ES256",
}

// generateKeyPEM creates a fresh P-256 key and returns its PEM encoding.
func generateKeyPEM(t *testing.T) (string, *ecdsa.PrivateKey) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	return string(pemBytes), priv
}

func TestNewSecretSigner_Errors(t *testing.T) {
	pemKey, _ := generateKeyPEM(t)

	t.Run("unsupported algorithm", func(t *testing.T) {
		identity := testIdentity
		identity.Algorithm = "XX256"

		_, err := NewSecretSigner(identity, pemKey, 20*time.Minute, observability.NopLogger())
		require.Error(t, err)
		assert.True(t, IsSigningError(err))
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})

	t.Run("malformed key", func(t *testing.T) {
		_, err := NewSecretSigner(testIdentity, "not-a-pem-key", 20*time.Minute, observability.NopLogger())
		require.Error(t, err)
		assert.True(t, IsSigningError(err))
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestSecretSigner_ClientSecret(t *testing.T) {
	pemKey, priv := generateKeyPEM(t)
	expiration := 1200 * time.Second
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	signer, err := NewSecretSigner(testIdentity, pemKey, expiration, observability.NopLogger())
	require.NoError(t, err)

	secret, err := signer.ClientSecret(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, now, secret.IssuedAt)
	assert.Equal(t, now.Add(expiration), secret.ExpiresAt)
	require.NotEmpty(t, secret.Token)

	// The assertion must verify against the public key and carry the
	// identity claims.
	parsed, err := jwt.Parse([]byte(secret.Token),
		jwt.WithKey(jwa.ES256, &priv.PublicKey),
		jwt.WithValidate(false),
	)
	require.NoError(t, err)

	assert.Equal(t, "t1", parsed.Issuer())
	assert.Equal(t, "c1", parsed.Subject())
	assert.Equal(t, []string{"a1"}, parsed.Audience())
	assert.True(t, parsed.IssuedAt().Equal(now))
	assert.True(t, parsed.Expiration().Equal(now.Add(expiration)))
	assert.NotEmpty(t, parsed.JwtID())
}

func TestSecretSigner_KeyIDHeader(t *testing.T) {
	pemKey, _ := generateKeyPEM(t)

	signer, err := NewSecretSigner(testIdentity, pemKey, 20*time.Minute, observability.NopLogger())
	require.NoError(t, err)

	secret, err := signer.ClientSecret(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	msg, err := jws.Parse([]byte(secret.Token))
	require.NoError(t, err)
	require.Len(t, msg.Signatures(), 1)
	assert.Equal(t, "k1", msg.Signatures()[0].ProtectedHeaders().KeyID())
}

func TestSecretSigner_DistinctInstantsDistinctTokens(t *testing.T) {
	pemKey, _ := generateKeyPEM(t)

	signer, err := NewSecretSigner(testIdentity, pemKey, 20*time.Minute, observability.NopLogger())
	require.NoError(t, err)

	t0 := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	first, err := signer.ClientSecret(context.Background(), t0)
	require.NoError(t, err)
	second, err := signer.ClientSecret(context.Background(), t1)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, time.Minute, second.ExpiresAt.Sub(first.ExpiresAt))
}

func TestSecretSigner_AlgorithmKeyMismatch(t *testing.T) {
	pemKey, _ := generateKeyPEM(t)

	// RS256 over an EC key parses fine but cannot sign.
	identity := testIdentity
	identity.Algorithm = "RS256"

	signer, err := NewSecretSigner(identity, pemKey, 20*time.Minute, observability.NopLogger())
	require.NoError(t, err)

	_, err = signer.ClientSecret(context.Background(), time.Now().UTC())
	require.Error(t, err)
	assert.True(t, IsSigningError(err))
}
