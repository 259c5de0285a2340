package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/sakif/company-reviews/internal/service"
)

const nameFlag = "name"

func newCompanyCommand(a *app) *cobra.Command {
	companyCmd := &cobra.Command{
		Use:   "company",
		Short: "Create, list and delete the companies reviews refer to",
	}

	createFlags := map[string]cobraflags.Flag{
		nameFlag: &cobraflags.StringFlag{
			Name:  nameFlag,
			Value: "",
			Usage: "Company name, up to 40 characters (required)",
		},
	}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Add a company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			companies, closeDB, err := a.companyService()
			if err != nil {
				return err
			}
			defer closeDB()

			return createCompany(cmd.Context(), cmd.OutOrStdout(), companies, createFlags[nameFlag].GetString())
		},
	}
	cobraflags.RegisterMap(createCmd, createFlags)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			companies, closeDB, err := a.companyService()
			if err != nil {
				return err
			}
			defer closeDB()

			return listCompanies(cmd.Context(), cmd.OutOrStdout(), companies)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a company and every review of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			companies, closeDB, err := a.companyService()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := companies.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted company %d\n", id)
			return nil
		},
	}

	companyCmd.AddCommand(createCmd, listCmd, deleteCmd)
	return companyCmd
}

func (a *app) companyService() (*service.CompanyService, func(), error) {
	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	return service.NewCompanyService(db, a.logger), func() { db.Close() }, nil
}

func createCompany(ctx context.Context, out io.Writer, companies *service.CompanyService, name string) error {
	if name == "" {
		return errors.New("--name is required")
	}
	company, err := companies.Create(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created company %s (id %d)\n", company, company.ID)
	return nil
}

func listCompanies(ctx context.Context, out io.Writer, companies *service.CompanyService) error {
	list, err := companies.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, c := range list {
		fmt.Fprintf(tw, "%d\t%s\n", c.ID, c)
	}
	return tw.Flush()
}
