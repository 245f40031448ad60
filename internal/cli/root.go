package cli

import (
	"github.com/spf13/cobra"

	configcmd "github.com/mocher01/agixt-configs-sub000/cmd/agixtctl/config"
	installcmd "github.com/mocher01/agixt-configs-sub000/cmd/agixtctl/install"
	verifycmd "github.com/mocher01/agixt-configs-sub000/cmd/agixtctl/verify"
)

// NewRootCommand constructs the root agixtctl command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agixtctl",
		Short: "agixtctl deploys and manages the AGiXT container stack",
	}

	cmd.AddCommand(installcmd.NewInstallCommand())
	cmd.AddCommand(configcmd.NewConfigCommand())
	cmd.AddCommand(verifycmd.NewVerifyCommand())

	return cmd
}
