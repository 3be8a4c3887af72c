// Command admintoken mints a short-lived bearer token for the /admin routes
// using JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/multimart/multimart/backend/go-services/internal/config"
	"github.com/multimart/multimart/backend/go-services/internal/tokens"
	"github.com/multimart/multimart/backend/go-services/pkg/logger"
)

func main() {
	sub := flag.String("sub", "", "subject (operator id)")
	email := flag.String("email", "", "operator email")
	role := flag.String("role", "admin", "role claim")
	ttl := flag.Duration("ttl", 0, "token lifetime (default JWT_ACCESS_TOKEN_TTL)")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if *sub == "" {
		fmt.Fprintln(os.Stderr, "usage: admintoken -sub <id> [-email e] [-role admin] [-ttl 15m]")
		os.Exit(2)
	}
	life := *ttl
	if life <= 0 {
		life = cfg.JWT.AccessTokenTTL
	}
	if life <= 0 {
		life = 15 * time.Minute
	}
	tok, err := tokens.GenerateAccessToken(cfg.JWT.Secret, *sub, *email, *role, life)
	if err != nil {
		logger.Fatalf("mint token: %v", err)
	}
	fmt.Println(tok)
}
