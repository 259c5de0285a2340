package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/sakif/company-reviews/internal/service"
)

const reviewUserFlag = "user"

func newReviewCommand(a *app) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "List and delete reviews written by any user",
		Long: `List and delete reviews regardless of who wrote them.

The HTTP API only ever shows users their own reviews. These commands are
for operators and see everything.`,
	}

	listFlags := map[string]cobraflags.Flag{
		reviewUserFlag: &cobraflags.StringFlag{
			Name:  reviewUserFlag,
			Value: "",
			Usage: "Only reviews written by this username",
		},
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List reviews, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reviews, closeDB, err := a.reviewService()
			if err != nil {
				return err
			}
			defer closeDB()

			return listReviews(cmd.Context(), cmd.OutOrStdout(), reviews, listFlags[reviewUserFlag].GetString())
		},
	}
	cobraflags.RegisterMap(listCmd, listFlags)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			reviews, closeDB, err := a.reviewService()
			if err != nil {
				return err
			}
			defer closeDB()

			return deleteReview(cmd.Context(), cmd.OutOrStdout(), reviews, id)
		},
	}

	reviewCmd.AddCommand(listCmd, deleteCmd)
	return reviewCmd
}

func (a *app) reviewService() (*service.ReviewService, func(), error) {
	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	return service.NewReviewService(db, db, db, a.logger), func() { db.Close() }, nil
}

func listReviews(ctx context.Context, out io.Writer, reviews *service.ReviewService, username string) error {
	list, err := reviews.ListAll(ctx, username)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREVIEW\tRATING\tDATE\tIP\tTITLE")
	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r, r.Rating, r.SubmissionDate.Format(time.DateOnly), r.IPAddress, r.Title)
	}
	return tw.Flush()
}

func deleteReview(ctx context.Context, out io.Writer, reviews *service.ReviewService, id int64) error {
	if err := reviews.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted review %d\n", id)
	return nil
}
