// Command token prints a bearer token for the HTTP API, signed with
// JWT_SECRET and valid for JWT_TTL.
package main

import (
	"flag"
	"fmt"
	"log"

	"weibosim/internal/config"
	"weibosim/internal/service"
)

func main() {
	subject := flag.String("sub", "presenter", "name of the caller the token is issued to")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	token, err := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL).IssueToken(*subject)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token.AccessToken)
}
