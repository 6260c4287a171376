package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"image-editor/internal/infra"
	"image-editor/internal/infra/credentials"
)

// geminikey writes the Gemini API key into SECRETS_DIR, where the api
// command reads it when GEMINI_API_KEY is unset.
func main() {
	_ = godotenv.Load()

	var (
		keyFlag string
		dirFlag string
	)
	flag.StringVar(&keyFlag, "key", "", "Gemini API key (falls back to GEMINI_API_KEY)")
	flag.StringVar(&dirFlag, "dir", "", "secrets directory (falls back to SECRETS_DIR)")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "GEMINI API key is required via -key or environment")
		os.Exit(1)
	}

	dir := strings.TrimSpace(dirFlag)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv("SECRETS_DIR"))
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "SECRETS_DIR is required via -dir or environment")
		os.Exit(1)
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "geminikey").Str("dir", dir).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := credentials.NewStore(dir).SetGeminiAPIKey(ctx, key); err != nil {
		logger.Error().Err(err).Msg("failed to persist gemini api key")
		os.Exit(1)
	}

	fmt.Println("GEMINI API key stored successfully")
}
