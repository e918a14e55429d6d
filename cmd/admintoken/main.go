// Command admintoken mints an admin token signed with ADMIN_JWT_SECRET,
// for operators calling the admin endpoints directly.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/article-publishing-api/internal/auth"
	"github.com/article-publishing-api/internal/config"
	"github.com/article-publishing-api/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	username := flag.String("username", "admin", "username claim")
	email := flag.String("email", "", "email claim")
	userID := flag.Int64("id", 0, "user id claim")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	// stdout carries only the token
	stderr := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info", "json").Output(stderr)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format).Output(stderr)

	authn := auth.New(cfg.Auth.JWTSecret, cfg.Auth.AdminRole)
	token, err := authn.Issue(auth.Claims{
		UserID:   *userID,
		Username: *username,
		Email:    *email,
		Role:     authn.AdminRole(),
	}, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	log.Info().Str("username", *username).Dur("ttl", *ttl).Msg("Admin token issued")
	fmt.Fprintln(os.Stdout, token)
}
