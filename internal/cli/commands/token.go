package commands

import (
	"DocVault/internal/config"
	"DocVault/internal/middleware"
	"context"
	"fmt"
	"time"
)

// tokenCmd выпускает токен сессии локально секретом AUTH_SECRET (среда разработки).
type tokenCmd struct{}

func (tokenCmd) Name() string        { return "token" }
func (tokenCmd) Description() string { return "Issue a session token for a tenant and store it" }
func (tokenCmd) Usage() string       { return "token <tenant> [ttl]" }

func (tokenCmd) Run(_ context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	ttl := middleware.DefaultTokenTTL
	if len(args) == 2 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return ErrUsage
		}
		ttl = d
	}
	token, err := middleware.IssueToken(args[0], cfg.AuthSecret, ttl)
	if err != nil {
		return err
	}
	if err := tokenStore(cfg).Save(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	fmt.Fprintf(Out, "Token for tenant %s stored (valid %s)\n", args[0], ttl)
	return nil
}

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "Remove the stored session token" }
func (logoutCmd) Usage() string       { return "logout" }

func (logoutCmd) Run(_ context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if err := tokenStore(cfg).Clear(); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Logged out")
	return nil
}

func init() {
	RegisterCmd(tokenCmd{})
	RegisterCmd(logoutCmd{})
}
