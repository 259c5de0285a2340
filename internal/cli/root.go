// Package cli builds the reviews command: the HTTP server plus the
// management commands that stand in for an admin UI.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/company-reviews/internal/auth"
	"github.com/sakif/company-reviews/internal/config"
	sqliteRepo "github.com/sakif/company-reviews/internal/repository/sqlite"
)

// app is the state shared by every subcommand, filled in before any of them
// runs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand returns the reviews command tree. Without a subcommand it
// serves the API.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "reviews",
		Short: "Company reviews API",
		Long: `Serve the company reviews API, or manage its users, reviewers, companies
and reviews.

Settings come from the environment (or a .env file):
  PORT, DB_PATH, PAGE_SIZE, BCRYPT_COST, LOG_LEVEL, CORS_ALLOWED_ORIGINS

Examples:
  reviews                                          # same as "reviews serve"
  reviews user create --username adam              # password read from stdin
  reviews company create --name "Acme Corp"
  reviews review list --user adam
  reviews reviewer set-description adam --description "Backend developer"`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
		RunE: a.serve,
	}

	root.AddCommand(newServeCommand(a))
	root.AddCommand(newUserCommand(a))
	root.AddCommand(newCompanyCommand(a))
	root.AddCommand(newReviewCommand(a))
	root.AddCommand(newReviewerCommand(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(a.logger)
	return nil
}

// openDB opens the configured database, creating its directory if needed.
func (a *app) openDB() (*sqliteRepo.DB, error) {
	if !strings.HasPrefix(a.cfg.DBPath, ":memory:") {
		dir := filepath.Dir(a.cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	return sqliteRepo.New(a.cfg.DBPath)
}

func (a *app) passwords() (*auth.PasswordService, error) {
	return auth.NewPasswordServiceWithCost(a.cfg.BcryptCost)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", raw)
	}
	return id, nil
}
