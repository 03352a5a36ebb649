package cli

import (
	"fmt"

	"github.com/BenjaminSRussell/crawlchimp/internal/auth"
	"github.com/spf13/cobra"
)

// NewInitCredentialsCmd creates the init-credentials command
func NewInitCredentialsCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-credentials [file]",
		Short: "Write a sample credentials file",
		Long: `Write a sample credentials file with placeholder username, password, bearer
token, API key and cookies. The file is created with mode 0600. Remove the
entries you do not need before passing it to crawl --cred-file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := auth.DefaultCredentialsFile
			if len(args) == 1 {
				path = args[0]
			}

			if err := auth.WriteTemplate(path, force); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sample credentials file created: %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Edit it with your actual credentials before use.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}
