package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/vyrodovalexey/searchads-tap/internal/cache"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// Params configures a pipeline. Store is optional: nil disables caching
// without changing the final header values, only the amount of signing and
// network work performed. The store is owned by the caller and passed in
// explicitly; the pipeline never opens one behind the scenes.
type Params struct {
	Identity      Identity
	PrivateKeyPEM string
	Expiration    time.Duration
	OrgID         string
	TokenURL      string

	Store      cache.Store
	HTTPClient *http.Client
	Logger     observability.Logger
	Clock      Clock
}

// Pipeline composes the three derivation stages. Evaluation is lazy and
// top-down: the header stage pulls from the token stage, which pulls from
// the secret stage only when it actually needs to exchange.
type Pipeline struct {
	headers HeaderSource
	clock   Clock
	logger  observability.Logger
}

// NewPipeline builds the stage chain, wrapping each stage with the durable
// cache when a store is supplied. Key parsing happens here, so malformed
// key material fails construction rather than the first evaluation.
func NewPipeline(p Params) (*Pipeline, error) {
	logger := p.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	clock := p.Clock
	if clock == nil {
		clock = SystemClock()
	}

	secrets, err := NewSecretSigner(p.Identity, p.PrivateKeyPEM, p.Expiration, logger)
	if err != nil {
		return nil, err
	}
	if p.Store != nil {
		secrets = newCachedSecretSource(secrets, p.Store, logger)
	}

	var tokens TokenSource = newTokenExchanger(secrets, p.Identity.ClientID, p.TokenURL, p.HTTPClient, logger)
	if p.Store != nil {
		tokens = newCachedTokenSource(tokens, p.Store, logger)
	}

	var headers HeaderSource = newHeaderBuilder(p.OrgID, tokens)
	if p.Store != nil {
		headers = newCachedHeaderSource(headers, p.Store, logger)
	}

	return &Pipeline{
		headers: headers,
		clock:   clock,
		logger:  logger,
	}, nil
}

// Headers evaluates the pipeline once. The evaluation instant is sampled
// exactly once so every stage's freshness check sees the same "now".
func (p *Pipeline) Headers(ctx context.Context) (RequestHeaders, error) {
	now := p.clock.Now().UTC()

	p.logger.Debug("evaluating auth pipeline",
		observability.Time("now", now))

	return p.headers.RequestHeaders(ctx, now)
}
