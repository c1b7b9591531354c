package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/srtgen/internal/types"
)

const exitCancelled = 130

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present
	os.Exit(Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cc := newCommandContext(stderr)
	defer cc.close()

	root := newRootCommand(cc)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var je *types.JobError
	switch {
	case errors.Is(err, types.ErrCancelled):
		fmt.Fprintln(stderr, types.UserMessage(err))
		return exitCancelled
	case errors.As(err, &je):
		fmt.Fprintln(stderr, types.UserMessage(err))
	default:
		fmt.Fprintln(stderr, err)
	}
	return 1
}

func newRootCommand(cc *commandContext) *cobra.Command {
	root := &cobra.Command{
		Use:           "srtgen",
		Short:         "Generate SRT subtitles from local media with whisper.cpp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cc.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&cc.configFlag, "config", "c", "", "Configuration file path")

	root.AddCommand(newTranscribeCommand(cc))
	root.AddCommand(newTextCommand(cc))
	root.AddCommand(newModelsCommand(cc))
	root.AddCommand(newHistoryCommand(cc))
	root.AddCommand(newDoctorCommand(cc))
	root.AddCommand(newProbeCommand(cc))
	root.AddCommand(newConfigCommand(cc))
	return root
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
