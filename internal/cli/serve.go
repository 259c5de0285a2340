package cli

import (
	"github.com/spf13/cobra"

	"github.com/sakif/company-reviews/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE:  a.serve,
	}
}

func (a *app) serve(_ *cobra.Command, _ []string) error {
	srv, err := server.New(server.Config{
		Port:               a.cfg.Port,
		DBPath:             a.cfg.DBPath,
		PageSize:           a.cfg.PageSize,
		BcryptCost:         a.cfg.BcryptCost,
		CORSAllowedOrigins: a.cfg.CORSAllowedOrigins,
	}, a.logger)
	if err != nil {
		return err
	}
	return srv.Start()
}
