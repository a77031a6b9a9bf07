package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"menuviz/internal/config"
	"menuviz/internal/daemonrun"
)

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Getenv("MENUVIZ_CONFIG")); err != nil {
		log.Fatal(err)
	}
}

// run loads the configuration at path (or the default search path when
// empty) and serves until SIGINT or SIGTERM.
func run(ctx context.Context, path string) error {
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return daemonrun.Run(ctx, cfg, daemonrun.Options{})
}
