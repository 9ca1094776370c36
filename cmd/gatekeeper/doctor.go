package main

import (
	"fmt"

	"github.com/ashureev/gatekeeper/internal/container"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check datastore and Docker daemon reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			_, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer closeRepo(repo)

			if err := repo.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("datastore unreachable: %w", err)
			}
			fmt.Fprintln(out, "Datastore reachable (ping ok).")

			runtime, err := container.NewDockerRuntime(nil)
			if err != nil {
				return err
			}
			if err := runtime.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("docker API error: %w", err)
			}
			fmt.Fprintln(out, "Docker API reachable (ping ok).")
			return nil
		},
	}
}
