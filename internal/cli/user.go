package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/sakif/company-reviews/internal/service"
)

const (
	usernameFlag    = "username"
	passwordFlag    = "password"
	descriptionFlag = "description"
)

func newUserCommand(a *app) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Create users, print their tokens, delete them",
	}

	createFlags := map[string]cobraflags.Flag{
		usernameFlag: &cobraflags.StringFlag{
			Name:  usernameFlag,
			Value: "",
			Usage: "Username (required)",
		},
		passwordFlag: &cobraflags.StringFlag{
			Name:  passwordFlag,
			Value: "",
			Usage: "Password. Read from stdin when omitted",
		},
		descriptionFlag: &cobraflags.StringFlag{
			Name:  descriptionFlag,
			Value: "",
			Usage: "Reviewer self-description, up to 40 characters",
		},
	}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a user with a reviewer profile and an API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := createFlags[passwordFlag].GetString()
			if password == "" {
				var err error
				if password, err = readPassword(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			authSvc, closeDB, err := a.authService()
			if err != nil {
				return err
			}
			defer closeDB()

			return createUser(cmd.Context(), cmd.OutOrStdout(), authSvc,
				createFlags[usernameFlag].GetString(),
				password,
				createFlags[descriptionFlag].GetString(),
			)
		},
	}
	cobraflags.RegisterMap(createCmd, createFlags)

	tokenCmd := &cobra.Command{
		Use:   "token <username>",
		Short: "Print a user's API token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			authSvc, closeDB, err := a.authService()
			if err != nil {
				return err
			}
			defer closeDB()

			return printToken(cmd.Context(), cmd.OutOrStdout(), authSvc, args[0])
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user together with its reviewer profile, token and reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			authSvc, closeDB, err := a.authService()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := authSvc.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %d\n", id)
			return nil
		},
	}

	userCmd.AddCommand(createCmd, tokenCmd, deleteCmd)
	return userCmd
}

func (a *app) authService() (*service.AuthService, func(), error) {
	passwords, err := a.passwords()
	if err != nil {
		return nil, nil, err
	}
	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	return service.NewAuthService(db, db, passwords, a.logger), func() { db.Close() }, nil
}

func createUser(ctx context.Context, out io.Writer, authSvc *service.AuthService, username, password, description string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("--username is required")
	}

	var desc *string
	if description != "" {
		desc = &description
	}

	user, token, err := authSvc.Register(ctx, username, password, desc)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created user %s (id %d)\n", user, user.ID)
	fmt.Fprintf(out, "token: %s\n", token.Key)
	return nil
}

func printToken(ctx context.Context, out io.Writer, authSvc *service.AuthService, username string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username is required")
	}
	token, err := authSvc.TokenFor(ctx, username)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token.Key)
	return nil
}

// readPassword takes the first line of r, without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given: use --password or pipe it on stdin")
	}
	return line, nil
}
