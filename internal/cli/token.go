package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect the current session token",
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show session token metadata",
	Long:  "Authenticate (if necessary) and print the session token's metadata. The raw token value is never printed.",
	RunE:  runTokenShow,
}

func runTokenShow(cmd *cobra.Command, args []string) error {
	built, err := buildClientFromFile(cmd.Context(), GetConfigPath())
	if err != nil {
		return err
	}
	defer built.client.Close(cmd.Context())

	tok, err := built.client.SessionToken(cmd.Context())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	out := GetOutputWriter()
	fmt.Fprintf(out, "Type: %s\n", tok.Type())
	fmt.Fprintf(out, "Renewable: %t\n", tok.IsRenewable())
	fmt.Fprintf(out, "Lease Duration: %s\n", tok.LeaseDuration())
	if tok.Accessor() != "" {
		fmt.Fprintf(out, "Accessor: %s\n", tok.Accessor())
	}
	return nil
}

func init() {
	tokenCmd.AddCommand(tokenShowCmd)
	rootCmd.AddCommand(tokenCmd)
}
