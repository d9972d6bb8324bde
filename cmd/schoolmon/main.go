// Command schoolmon turns labelled school email into verified Slack digests
// and calendar invites.
package main

import (
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/ppiankov/schoolmon/internal/cli"
)

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		slog.Error("schoolmon failed", "error", err)
		os.Exit(1)
	}
}
