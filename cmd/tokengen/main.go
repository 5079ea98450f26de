// Command tokengen issues an API bearer token for one tenant, signed with
// JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"infinite-experiment/edigate/internal/auth"
	"infinite-experiment/edigate/internal/config"
)

func main() {
	tenantID := flag.String("tenant", "", "tenant id (uuid)")
	subject := flag.String("sub", "erp-integration", "token subject")
	role := flag.String("role", "admin", "role claim")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	flag.Parse()

	if _, err := uuid.Parse(*tenantID); err != nil {
		log.Fatalf("-tenant must be a uuid: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	token, err := auth.IssueToken(cfg.JWTSecret, *tenantID, *subject, *role, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
