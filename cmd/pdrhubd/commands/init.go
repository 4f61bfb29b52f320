package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/pdrhub/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.GetDefaultConfigPath()
		}

		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}

		if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
			return err
		}

		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}
