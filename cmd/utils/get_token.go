package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"farewatch-service/internal/infrastructure/config"
	"farewatch-service/internal/infrastructure/oauth"
	"farewatch-service/pkg/logger"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func main() {
	var port int

	cmd := &cobra.Command{
		Use:          "get_token",
		Short:        "Obtain a Gmail refresh token with the send scope for GMAIL_REFRESH_TOKEN",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getToken(cmd.Context(), port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8090, "local port for the OAuth callback")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getToken(ctx context.Context, port int) error {
	log := logger.NewLogger("info", logger.FormatConsole)
	defer log.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.GmailClientID == "" || cfg.GmailClientSecret == "" {
		return errors.New("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET are required")
	}
	gmailOAuth := oauth.NewGmailOAuth(cfg.GmailClientID, cfg.GmailClientSecret, "", log)

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("failed to create state: %w", err)
	}
	state := hex.EncodeToString(buf)

	tokens := make(chan *oauth2.Token, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		token, err := gmailOAuth.ExchangeCode(r.Context(), r.URL.Query().Get("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "Authentication successful! You can close this window.")
		select {
		case tokens <- token:
		default:
		}
	})

	server := &http.Server{Addr: fmt.Sprintf("localhost:%d", port), Handler: mux}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	redirect := fmt.Sprintf("http://localhost:%d/oauth2callback", port)
	fmt.Printf("Open this URL in your browser:\n%s\n", gmailOAuth.GenerateAuthURL(redirect, state))

	var token *oauth2.Token
	select {
	case token = <-tokens:
	case err := <-serveErr:
		return fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	tokenJSON, err := gmailOAuth.TokenToJSON(token)
	if err != nil {
		return err
	}
	fmt.Printf("\nToken:\n%s\n\nGMAIL_REFRESH_TOKEN=%s\n", tokenJSON, token.RefreshToken)
	return nil
}
