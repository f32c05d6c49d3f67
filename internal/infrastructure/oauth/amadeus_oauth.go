package oauth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"farewatch-service/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const amadeusTokenPath = "/v1/security/oauth2/token"

// AmadeusOAuth obtains client-credentials tokens for the Amadeus APIs
type AmadeusOAuth struct {
	config *clientcredentials.Config
	logger logger.Logger
}

// NewAmadeusOAuth creates a token handler for the given API host
func NewAmadeusOAuth(clientID, clientSecret, baseURL string, logger logger.Logger) *AmadeusOAuth {
	return &AmadeusOAuth{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     strings.TrimRight(baseURL, "/") + amadeusTokenPath,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		logger: logger.With("component", "amadeus_oauth"),
	}
}

// GetTokenSource returns a caching, auto-refreshing token source
func (o *AmadeusOAuth) GetTokenSource(ctx context.Context) oauth2.TokenSource {
	return newLoggingTokenSource("amadeus", o.config.TokenSource(ctx), o.logger)
}

// HTTPClient returns a client that attaches the bearer token to every
// request. The token endpoint is called through the client found in ctx
// (oauth2.HTTPClient), if any.
func (o *AmadeusOAuth) HTTPClient(ctx context.Context, timeout time.Duration) *http.Client {
	client := oauth2.NewClient(ctx, o.GetTokenSource(ctx))
	client.Timeout = timeout
	o.logger.Debug("Amadeus HTTP client ready", "tokenURL", o.config.TokenURL, "timeout", timeout.String())
	return client
}
