package main

import (
	"bufio"
	"fmt"

	"github.com/ashureev/gatekeeper/internal/auth"
	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage regular user accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserListCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Add a regular user",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer closeRepo(repo)

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			username, err := auth.PromptLine(in, "Username: ", out)
			if err != nil {
				return err
			}
			password, err := auth.PromptPassword("Password (min 8 chars): ", out)
			if err != nil {
				return err
			}

			creds := auth.NewCredentials(repo)
			if err := creds.Create(cmd.Context(), username, password, domain.RoleUser); err != nil {
				return err
			}
			fmt.Fprintf(out, "User '%s' created with role 'user'\n", username)
			return nil
		},
	}
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List regular users",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer closeRepo(repo)

			creds := auth.NewCredentials(repo)
			users, err := creds.List(cmd.Context(), domain.RoleUser)
			if err != nil {
				return err
			}
			printAccounts(cmd, users)
			return nil
		},
	}
}
