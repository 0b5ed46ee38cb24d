package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// secretSigner produces signed client secrets from a private key and the
// signing identity. It never touches the network and never retries: a
// signing failure means no valid secret can exist, which aborts the run.
type secretSigner struct {
	identity   Identity
	key        jwk.Key
	algorithm  jwa.SignatureAlgorithm
	expiration time.Duration
	logger     observability.Logger
}

// NewSecretSigner creates a secret signer from PEM-encoded private key
// material. The key is parsed once here; malformed material or an unknown
// algorithm surfaces immediately as a SigningError.
func NewSecretSigner(
	identity Identity, privateKeyPEM string, expiration time.Duration, logger observability.Logger,
) (SecretSource, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	var algorithm jwa.SignatureAlgorithm
	if err := algorithm.Accept(identity.Algorithm); err != nil {
		return nil, NewSigningError("algorithm "+identity.Algorithm, ErrUnsupportedAlgorithm)
	}

	key, err := jwk.ParseKey([]byte(privateKeyPEM), jwk.WithPEM(true))
	if err != nil {
		return nil, NewSigningError("failed to parse private key", ErrInvalidKey)
	}

	// Carrying the kid on the key makes jwx emit it in the JOSE header.
	if err := key.Set(jwk.KeyIDKey, identity.KeyID); err != nil {
		return nil, NewSigningError("failed to set key ID", err)
	}

	return &secretSigner{
		identity:   identity,
		key:        key,
		algorithm:  algorithm,
		expiration: expiration,
		logger:     logger,
	}, nil
}

// ClientSecret signs a fresh client assertion valid from now until
// now + expiration. Two calls with different instants yield different
// tokens (iat, exp, and jti all differ).
func (s *secretSigner) ClientSecret(_ context.Context, now time.Time) (SignedSecret, error) {
	expiresAt := now.Add(s.expiration)

	token, err := jwt.NewBuilder().
		Issuer(s.identity.TeamID).
		Subject(s.identity.ClientID).
		Audience([]string{s.identity.Audience}).
		IssuedAt(now).
		Expiration(expiresAt).
		JwtID(uuid.New().String()).
		Build()
	if err != nil {
		signingsTotal.WithLabelValues(metricResultError).Inc()
		return SignedSecret{}, NewSigningError("failed to build claims", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(s.algorithm, s.key))
	if err != nil {
		signingsTotal.WithLabelValues(metricResultError).Inc()
		return SignedSecret{}, NewSigningError("failed to sign client secret", err)
	}

	signingsTotal.WithLabelValues(metricResultSuccess).Inc()
	s.logger.Debug("client secret signed",
		observability.String("algorithm", s.algorithm.String()),
		observability.Time("expiresAt", expiresAt))

	return SignedSecret{
		Token:     string(signed),
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}
