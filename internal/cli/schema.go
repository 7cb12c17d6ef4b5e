package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the profile JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(profilesvc.Descriptor().Document())
		},
	}
}
