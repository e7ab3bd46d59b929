package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"hotelbook/pkg/authz"
	"hotelbook/pkg/config"
	"hotelbook/pkg/middleware"
	"hotelbook/pkg/model"
)

// Mints a bearer token signed with JWT_SECRET for local testing.
func main() {
	sub := flag.String("sub", "", "user id placed in the sub claim")
	role := flag.String("role", string(model.RoleUser), "USER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv(config.EnvJWTSecret)
	if secret == "" || *sub == "" || !model.Role(*role).Valid() {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "JWT_SECRET, -sub and a valid -role are required")
		os.Exit(2)
	}

	token, err := middleware.IssueToken([]byte(secret), authz.Caller{ID: *sub, Role: model.Role(*role)}, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
