package oauth

import (
	"context"
	"encoding/json"
	"fmt"

	"farewatch-service/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// GmailOAuth manages the refresh-token flow for sending alert mail
type GmailOAuth struct {
	config       *oauth2.Config
	refreshToken string
	logger       logger.Logger
}

// NewGmailOAuth creates a Gmail OAuth handler limited to the send scope
func NewGmailOAuth(clientID, clientSecret, refreshToken string, logger logger.Logger) *GmailOAuth {
	return &GmailOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailSendScope},
		},
		refreshToken: refreshToken,
		logger:       logger.With("component", "gmail_oauth"),
	}
}

// GetTokenSource returns a token source seeded with the stored refresh
// token. The first call exchanges it for an access token.
func (o *GmailOAuth) GetTokenSource(ctx context.Context) oauth2.TokenSource {
	seed := &oauth2.Token{RefreshToken: o.refreshToken}
	return newLoggingTokenSource("gmail", o.config.TokenSource(ctx, seed), o.logger)
}

// GenerateAuthURL builds the consent URL for an offline (refreshable) grant
func (o *GmailOAuth) GenerateAuthURL(redirectURL, state string) string {
	o.config.RedirectURL = redirectURL
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades the consent callback code for a token
func (o *GmailOAuth) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}
	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	if token.RefreshToken == "" {
		o.logger.Warn("Grant returned no refresh token; revoke the app and retry")
	} else {
		o.logger.Info("Refresh token obtained")
	}
	return token, nil
}

// TokenToJSON renders a token for the operator to store
func (o *GmailOAuth) TokenToJSON(token *oauth2.Token) (string, error) {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}
	return string(data), nil
}
