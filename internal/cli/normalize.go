package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
	"github.com/janisto/wallet-profiles/internal/platform/schema"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

const normalizeExamples = `  # Normalize a JSON record:
  profilectl normalize profile.json

  # Read YAML from stdin and print YAML:
  cat profile.yaml | profilectl normalize - --format yaml --output yaml`

type NormalizeArgs struct {
	*RootArgs

	Format string
	Output string
}

func NewNormalizeArgs(rootArgs *RootArgs) *NormalizeArgs {
	return &NormalizeArgs{RootArgs: rootArgs}
}

func (na *NormalizeArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&na.Format, "format", "f", FormatAuto, "Input format, one of: auto, json, yaml")
	cmd.Flags().StringVarP(&na.Output, "output", "o", FormatJSON, "Output format, one of: json, yaml")

	must(cmd.RegisterFlagCompletionFunc("format",
		cobra.FixedCompletions([]string{FormatAuto, FormatJSON, FormatYAML}, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions([]string{FormatJSON, FormatYAML}, cobra.ShellCompDirectiveNoFileComp),
	))
}

func NewNormalizeCmd(args *NormalizeArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "normalize [file|-]",
		Short:   "Fill defaults and validate one profile record",
		Example: normalizeExamples,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			path := stdinPath
			if len(posArgs) == 1 {
				path = posArgs[0]
			}
			return runNormalize(cmd, args, path)
		},
	}
	args.AddFlags(cmd)
	return cmd
}

func runNormalize(cmd *cobra.Command, args *NormalizeArgs, path string) error {
	if args.Output != FormatJSON && args.Output != FormatYAML {
		return fmt.Errorf("invalid argument %q for --output", args.Output)
	}

	rec, err := readRecordFile(cmd.InOrStdin(), path, args.Format)
	if err != nil {
		return err
	}

	out, err := args.normalizer().Prepare(cmd.Context(), rec)
	if err != nil {
		writeIssues(cmd.ErrOrStderr(), "", err)
		return ErrInvalid
	}
	warnUndeclared(cmd, path, out)

	return writeRecord(cmd.OutOrStdout(), out, args.Output)
}

// warnUndeclared logs keys the profile descriptor does not know about. They
// are kept in the output.
func warnUndeclared(cmd *cobra.Command, path string, rec schema.Record) {
	var extra []string
	for key := range rec {
		if !slices.ContainsFunc(profilesvc.Descriptor().Fields(), func(f schema.Field) bool { return f.Name == key }) {
			extra = append(extra, key)
		}
	}
	if len(extra) == 0 {
		return
	}
	slices.Sort(extra)
	applog.LogWarn(cmd.Context(), "record has undeclared keys",
		zap.String("file", path),
		zap.Strings("keys", extra),
	)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
