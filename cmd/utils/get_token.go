package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"crewmission-service/internal/infrastructure/oauth"
	"crewmission-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// get_token runs the consent flow once and prints the GMAIL_REFRESH_TOKEN
// value used by the client email sender.
func main() {
	_ = godotenv.Load()
	log := logger.NewLogger("info")

	auth := oauth.NewGmailOAuth(
		os.Getenv("GMAIL_CLIENT_ID"),
		os.Getenv("GMAIL_CLIENT_SECRET"),
		"",
		"http://localhost:8090/oauth2callback",
		log,
	)
	if !auth.Configured() {
		log.Fatal("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
	}

	state := uuid.NewString()

	http.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		token, err := auth.ExchangeCode(context.Background(), r.URL.Query().Get("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		raw, err := auth.TokenToJSON(token)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Printf("\nToken:\n%s\n\nGMAIL_REFRESH_TOKEN=%s\n\n", raw, token.RefreshToken)

		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		os.Exit(0)
	})

	fmt.Printf("Open this URL in your browser:\n%s\n", auth.GenerateAuthURL(state))

	if err := http.ListenAndServe(":8090", nil); err != nil {
		log.Fatal("Callback server stopped", "error", err)
	}
}
