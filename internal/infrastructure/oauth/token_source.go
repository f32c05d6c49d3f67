package oauth

import (
	"fmt"
	"time"

	"farewatch-service/pkg/logger"

	"golang.org/x/oauth2"
)

// loggingTokenSource reports every token fetch. Wrap it in
// oauth2.ReuseTokenSource so only real refreshes reach it.
type loggingTokenSource struct {
	name   string
	src    oauth2.TokenSource
	logger logger.Logger
}

func newLoggingTokenSource(name string, src oauth2.TokenSource, log logger.Logger) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &loggingTokenSource{name: name, src: src, logger: log})
}

// Token fetches a fresh token from the wrapped source
func (s *loggingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token()
	if err != nil {
		s.logger.Error("Failed to refresh OAuth token", "provider", s.name, "error", err)
		return nil, fmt.Errorf("%s token refresh: %w", s.name, err)
	}
	s.logger.Debug("OAuth token refreshed", "provider", s.name, "expiresIn", time.Until(token.Expiry).Round(time.Second).String())
	return token, nil
}
