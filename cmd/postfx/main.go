// Command postfx runs the post processing compositor: record frames against the command
// recorder, view them in a window, or bake the atmosphere lookup tables.
package main

import (
	"fmt"
	"os"

	"postfx-gl/config"
	"postfx-gl/libutil"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var (
	logLevel    string
	profilePath string

	logger  hclog.Logger
	profile config.Profile

	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:           "postfx",
		Short:         "Post processing compositor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = libutil.NewLogger("postfx", logLevel, os.Stderr)
			if profilePath == "" {
				profile = config.Default()
				return nil
			}
			var err error
			profile, err = config.LoadFile(profilePath)
			if err != nil {
				return err
			}
			logger.Debug("loaded profile", "path", profilePath)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", libutil.LogLevel(), "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "Path to a JSON settings profile, defaults apply when empty")

	rootCmd.AddCommand(newRecordCmd(), newViewCmd(), newBakeCmd(), newProfileCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Validate the profile and print it with defaults filled in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return profile.Save(cmd.OutOrStdout())
		},
	}
}
