package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sakif/company-reviews/internal/service"
)

func newReviewerCommand(a *app) *cobra.Command {
	reviewerCmd := &cobra.Command{
		Use:   "reviewer",
		Short: "Edit reviewer profiles",
	}

	// A plain cobra flag: "description" is already registered through
	// cobraflags by "user create".
	var description string
	setDescriptionCmd := &cobra.Command{
		Use:   "set-description <username>",
		Short: "Replace a reviewer's self-description (empty clears it)",
		Example: `  reviews reviewer set-description adam --description "Backend developer"
  reviews reviewer set-description adam --description ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewers, closeDB, err := a.reviewerService()
			if err != nil {
				return err
			}
			defer closeDB()

			return setDescription(cmd.Context(), cmd.OutOrStdout(), reviewers, args[0], description)
		},
	}
	setDescriptionCmd.Flags().StringVar(&description, descriptionFlag, "", "Self-description, up to 40 characters")
	_ = setDescriptionCmd.MarkFlagRequired(descriptionFlag)

	reviewerCmd.AddCommand(setDescriptionCmd)
	return reviewerCmd
}

func (a *app) reviewerService() (*service.ReviewerService, func(), error) {
	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	return service.NewReviewerService(db, db, a.logger), func() { db.Close() }, nil
}

func setDescription(ctx context.Context, out io.Writer, reviewers *service.ReviewerService, username, description string) error {
	reviewer, err := reviewers.SetDescription(ctx, username, description)
	if err != nil {
		return err
	}
	if reviewer.SelfDescription == nil {
		fmt.Fprintf(out, "cleared description of reviewer %s\n", reviewer)
		return nil
	}
	fmt.Fprintf(out, "reviewer %s: %s\n", reviewer, *reviewer.SelfDescription)
	return nil
}
