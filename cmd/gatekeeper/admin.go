package main

import (
	"bufio"
	"fmt"

	"github.com/ashureev/gatekeeper/internal/auth"
	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Bootstrap and manage admin accounts",
	}
	cmd.AddCommand(newAdminBootstrapCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminAddCmd())
	cmd.AddCommand(newAdminRemoveCmd())
	cmd.AddCommand(newAdminDeleteUserCmd())
	return cmd
}

func newAdminBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first admin if none exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer closeRepo(repo)

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			username, err := auth.PromptLine(in, "Admin username: ", out)
			if err != nil {
				return err
			}
			password, err := auth.PromptPassword("Admin password (min 8 chars): ", out)
			if err != nil {
				return err
			}

			policy := auth.NewPolicy(auth.NewCredentials(repo), nil)
			if err := policy.BootstrapAdmin(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(out, "Admin created: %s\n", username)
			return nil
		},
	}
}

func newAdminListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admins",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer closeRepo(repo)

			creds := auth.NewCredentials(repo)
			admins, err := creds.List(cmd.Context(), domain.RoleAdmin)
			if err != nil {
				return err
			}
			printAccounts(cmd, admins)
			return nil
		},
	}
}

func newAdminAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Add an admin (requires an existing admin's credentials)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer closeRepo(repo)

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			caller, err := auth.PromptLine(in, "Your admin username: ", out)
			if err != nil {
				return err
			}
			callerPassword, err := auth.PromptPassword(fmt.Sprintf("Password for '%s': ", caller), out)
			if err != nil {
				return err
			}
			username, err := auth.PromptLine(in, "New admin username: ", out)
			if err != nil {
				return err
			}
			password, err := auth.PromptPassword("New admin password (min 8 chars): ", out)
			if err != nil {
				return err
			}

			policy := auth.NewPolicy(auth.NewCredentials(repo), nil)
			if err := policy.AddAdmin(cmd.Context(), caller, callerPassword, username, password); err != nil {
				return err
			}
			fmt.Fprintf(out, "Admin created: %s\n", username)
			return nil
		},
	}
}

func newAdminRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove an admin (requires that admin's own password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer closeRepo(repo)

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			username, err := auth.PromptLine(in, "Admin username to delete: ", out)
			if err != nil {
				return err
			}
			password, err := auth.PromptPassword(fmt.Sprintf("Password for '%s' (required to delete): ", username), out)
			if err != nil {
				return err
			}

			policy := auth.NewPolicy(auth.NewCredentials(repo), nil)
			if err := policy.RemoveAdmin(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(out, "Admin deleted: %s\n", username)
			return nil
		},
	}
}

func newAdminDeleteUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user",
		Short: "Delete a regular user (admin-only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer closeRepo(repo)

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			caller, err := auth.PromptLine(in, "Admin username (for authorization): ", out)
			if err != nil {
				return err
			}
			callerPassword, err := auth.PromptPassword(fmt.Sprintf("Password for '%s': ", caller), out)
			if err != nil {
				return err
			}
			username, err := auth.PromptLine(in, "Regular username to delete: ", out)
			if err != nil {
				return err
			}

			policy := auth.NewPolicy(auth.NewCredentials(repo), nil)
			if err := policy.DeleteUser(cmd.Context(), caller, callerPassword, username); err != nil {
				return err
			}
			fmt.Fprintf(out, "User deleted: %s\n", username)
			return nil
		},
	}
}

func printAccounts(cmd *cobra.Command, accounts []domain.AccountInfo) {
	out := cmd.OutOrStdout()
	if len(accounts) == 0 {
		fmt.Fprintln(out, "(none)")
		return
	}
	for _, acc := range accounts {
		fmt.Fprintf(out, "- %s (%s)\n", acc.Username, acc.Role)
	}
}
