package commands

import (
	"DocVault/internal/cli/api"
	"DocVault/internal/cli/repo"
	fsrepo "DocVault/internal/cli/repo/fs"
	"DocVault/internal/config"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrUsage is returned by a command when arguments are invalid and usage should be shown.
var ErrUsage = errors.New("usage")

// Command represents a CLI subcommand.
type Command interface {
	// Name returns the command name as typed by the user, e.g. "upload".
	Name() string
	// Description is a short human-readable description shown in help.
	Description() string
	// Usage returns the exact usage string, e.g. "download <file_ref> <path>".
	Usage() string
	// Run executes the command with provided args (without the command name).
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

// registry holds available commands by name.
var registry = map[string]Command{}

// Out — общий writer для вывода CLI. По умолчанию os.Stdout, но в тестах может переназначаться.
var Out io.Writer = os.Stdout

// RegisterCmd adds a command to the registry. Should be called from init() of each command.
func RegisterCmd(cmd Command) {
	registry[cmd.Name()] = cmd
}

// Get returns a command by name.
func Get(name string) (Command, bool) {
	c, ok := registry[name]
	return c, ok
}

// List returns all registered commands sorted by name.
func List() []Command {
	list := make([]Command, 0, len(registry))
	for _, c := range registry {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// FormatGlobalUsage builds a help text for all commands.
func FormatGlobalUsage() string {
	lines := []string{
		"DocVault CLI",
		"",
		"Usage:",
		"  dvcli [--base-url <host:port>] [--token-file <path>] <command> [args]",
		"",
		"Commands:",
	}
	for _, c := range List() {
		lines = append(lines, fmt.Sprintf("  %-28s %s", c.Usage(), c.Description()))
	}
	return strings.Join(lines, "\n") + "\n"
}

// tokenStore — хранилище токена сессии по пути из конфигурации.
func tokenStore(cfg *config.Config) repo.TokenStore {
	return fsrepo.AuthFSStore{Path: cfg.TokenFile}
}

// newClient создаёт API-клиента с сохранённым токеном.
func newClient(cfg *config.Config) (*api.Client, error) {
	token, err := tokenStore(cfg).Load()
	if err != nil {
		return nil, fmt.Errorf("no session token (run `token <tenant>` first): %w", err)
	}
	return api.New(cfg.ServerURL, token), nil
}

// printJSON печатает v с отступами.
func printJSON(v any) error {
	enc := json.NewEncoder(Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
