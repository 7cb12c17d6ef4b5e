package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
)

type CheckArgs struct {
	*RootArgs

	Format string
}

func NewCheckArgs(rootArgs *RootArgs) *CheckArgs {
	return &CheckArgs{RootArgs: rootArgs}
}

func (ca *CheckArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ca.Format, "format", "f", FormatAuto, "Input format, one of: auto, json, yaml")
}

func NewCheckCmd(args *CheckArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check file...",
		Short: "Validate profile records and report each as ok or invalid",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			return runCheck(cmd, args, paths)
		},
	}
	args.AddFlags(cmd)
	return cmd
}

// runCheck validates every file even after a failure. Issues are indented
// under the file's status line.
func runCheck(cmd *cobra.Command, args *CheckArgs, paths []string) error {
	normalizer := args.normalizer()
	out := cmd.OutOrStdout()

	invalid := 0
	for _, path := range paths {
		rec, err := readRecordFile(cmd.InOrStdin(), path, args.Format)
		if err == nil {
			_, err = normalizer.Prepare(cmd.Context(), rec)
		}
		if err != nil {
			invalid++
			fmt.Fprintf(out, "%s: invalid\n", path)
			writeIssues(out, "  ", err)
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", path)
	}

	applog.Sugar().Debugw("check finished", "files", len(paths), "invalid", invalid)
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrInvalid, invalid, len(paths))
	}
	return nil
}
