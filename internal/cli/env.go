package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// bindEnvVars binds PROFILECTL_<FLAG_NAME> environment variables to the
// command's flags. Arguments take precedence over environment variables,
// which take precedence over defaults.
func bindEnvVars(cmd *cobra.Command) {
	bind := func(flag *pflag.Flag) {
		bindFlagToEnv(cmd, flag)
	}
	cmd.Flags().VisitAll(bind)
	cmd.PersistentFlags().VisitAll(bind)
}

// bindFlagToEnv runs before logging is configured, so failures go straight to
// stderr and the default value is kept.
func bindFlagToEnv(cmd *cobra.Command, flag *pflag.Flag) {
	envName := flagToEnvName(flag.Name)

	if !strings.Contains(flag.Usage, envName) {
		flag.Usage = fmt.Sprintf("%s ($%s)", flag.Usage, envName)
	}

	if flag.Changed {
		return
	}

	if envValue, ok := os.LookupEnv(envName); ok {
		if err := flag.Value.Set(envValue); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "ignoring $%s: %v\n", envName, err)
		}
	}
}

// flagToEnvName converts "log-level" to "PROFILECTL_LOG_LEVEL".
func flagToEnvName(flagName string) string {
	return strings.ToUpper(cmdName + "_" + strings.ReplaceAll(flagName, "-", "_"))
}
