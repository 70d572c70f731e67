// Command devtoken prints a bearer token accepted by the server when no
// Auth0 tenant is configured.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/elcascavel/tassi-frontend/auth"
	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "dev|local", "subject, used as the Auth0 user id")
	name := flag.String("name", "Developer", "display name")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "devtoken: read .env:", err)
	}

	token, err := auth.CreateToken(*subject, *name, os.Getenv("JWT_SECRET"), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
