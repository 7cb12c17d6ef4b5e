// Package cli implements profilectl, an offline tool for normalizing and
// validating wallet profile records.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

const (
	cmdName = "profilectl"
	cmdDesc = `Normalize and validate wallet profile records.`
)

// ErrInvalid is returned when at least one record failed validation. The
// issues have already been written to stderr.
var ErrInvalid = errors.New("invalid profile record")

type RootArgs struct {
	LogLevel string
	Networks []string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&ra.LogLevel, "log-level", "warn", "Log level, one of: debug, info, warn, error")
	cmd.PersistentFlags().StringSliceVar(&ra.Networks, "networks", nil, "Accepted networkId values; empty accepts all")

	err := cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions([]string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}
}

// normalizer builds the profile normalizer for the configured networks.
func (ra *RootArgs) normalizer() *profilesvc.Normalizer {
	return profilesvc.NewNormalizer(profilesvc.StaticNetworks(ra.Networks))
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging(args),
	}

	args.AddFlags(cmd)
	cmd.AddCommand(
		NewNormalizeCmd(NewNormalizeArgs(args)),
		NewSchemaCmd(),
		NewCheckCmd(NewCheckArgs(args)),
	)

	bindEnvVars(cmd)
	for _, sub := range cmd.Commands() {
		bindEnvVars(sub)
	}

	return cmd
}

// setupLogging points the process logger at stderr so stdout only carries
// command output.
func setupLogging(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(_ *cobra.Command, _ []string) error {
		level, err := zapcore.ParseLevel(ra.LogLevel)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		applog.Configure(applog.Options{Level: level, Output: "stderr"})
		return nil
	}
}
