package main

import (
	"bufio"

	"github.com/ashureev/gatekeeper/internal/auth"
	"github.com/ashureev/gatekeeper/internal/container"
	"github.com/ashureev/gatekeeper/internal/recorder"
	"github.com/ashureev/gatekeeper/internal/session"
	"github.com/spf13/cobra"
)

func newEnterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enter [container]",
		Short: "Open a recorded interactive shell in a container",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer closeRepo(repo)

			runtime, err := container.NewDockerRuntime(nil)
			if err != nil {
				return err
			}

			ctrl := &session.Controller{
				Repo:           repo,
				Creds:          auth.NewCredentials(repo),
				Runtime:        runtime,
				Recorder:       recorder.Detect(nil),
				SessionDir:     cfg.SessionDir,
				Shells:         cfg.Shells,
				In:             bufio.NewReader(cmd.InOrStdin()),
				Out:            cmd.OutOrStdout(),
				PromptPassword: auth.PromptPassword,
			}

			containerName := ""
			if len(args) > 0 {
				containerName = args[0]
			}

			_, err = ctrl.Run(cmd.Context(), containerName)
			return err
		},
	}
}
