// Package auth provides the cookie-session admin login for the screening
// platform's admin surface. Credentials come from the environment; there is
// no user database.
package auth

import (
	"log"
	"os"
)

var (
	adminUsername string
	adminPassword string
)

// LoadAdminCredentials reads ADMIN_USERNAME and ADMIN_PASSWORD. With either
// unset, logins are rejected until the server is reconfigured.
func LoadAdminCredentials() {
	adminUsername = os.Getenv("ADMIN_USERNAME")
	adminPassword = os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" {
		log.Println("WARNING: ADMIN_USERNAME environment variable not set.")
	}
	if adminPassword == "" {
		log.Println("WARNING: ADMIN_PASSWORD environment variable not set.")
	}
}
