// Command devtoken mints a signed access token for local testing.  The
// server verifies tokens but never issues them; identity is owned by an
// external provider in production.
//
//	go run ./cmd/devtoken -sub partner-1 -role PARTNER
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/iliyamo/showtime-booking/internal/utils"
)

func main() {
	sub := flag.String("sub", "", "subject (user ID) of the token")
	role := flag.String("role", "CUSTOMER", "CUSTOMER, PARTNER or ADMIN")
	ttl := flag.Duration("ttl", defaultTTL(), "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(secret, *sub, strings.ToUpper(*role), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}

// defaultTTL honours ACCESS_TOKEN_TTL_MIN like the rest of the config.
func defaultTTL() time.Duration {
	if n, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MIN")); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	return time.Hour
}
