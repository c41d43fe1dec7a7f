package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"catbox/internal"
)

var (
	saveUsername string
	savePassword string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stored settings",
}

var configSaveCmd = &cobra.Command{
	Use:   "save --username <USER> --password <PASS>",
	Short: "Store account credentials in the config file",
	Long: `Store account credentials in the config file. The file is created with
mode 0600. Other settings already in the file are kept.

Example:
  catbox config save --username neko --password hunter2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		// Reload without the environment layer so it is not persisted
		stored, err := internal.LoadConfig(path)
		if err != nil {
			return err
		}
		stored.Username = saveUsername
		stored.Password = savePassword

		if _, err := stored.Credentials(); err != nil {
			return reportError(err)
		}

		if err := stored.SaveConfig(path); err != nil {
			return err
		}

		internal.LogInfo("Credentials saved to %s", path)
		if !config.QuietMode {
			fmt.Fprintf(cmd.OutOrStdout(), "Saved credentials for %s to %s\n", saveUsername, path)
		}
		return nil
	},
}

func init() {
	configSaveCmd.Flags().StringVar(&saveUsername, "username", "", "Account username")
	configSaveCmd.Flags().StringVar(&savePassword, "password", "", "Account password")
	configSaveCmd.MarkFlagsRequiredTogether("username", "password")
	_ = configSaveCmd.MarkFlagRequired("username")

	configCmd.AddCommand(configSaveCmd)
}
