// Command custody is the operator CLI for custodyd.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmerrifield20/custodyledger/pkg/client"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

const defaultServer = "http://localhost:8080"

var (
	serverURL    string
	cfgFile      string
	outputFormat string
	noColor      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "custody",
	Short: "Forensic chain-of-custody CLI",
	Long: `custody registers evidence, records custody transfers and checks the
integrity of the custody ledger kept by a custodyd server.

Run "custody shell" for an interactive menu.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath(configDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("custody")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = defaultServer
		}
		if noColor {
			color.NoColor = true
		}
		switch outputFormat {
		case "text", "json", "yaml":
			return nil
		}
		return fmt.Errorf("unknown --format %q (want text, json or yaml)", outputFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.custody/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "custodyd base URL (default "+defaultServer+")")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format: text, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "custody", version)
	},
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".custody")
}

// newClient builds an API client from the resolved server URL and any saved
// operator token.
func newClient() (*client.Client, error) {
	var opts []client.Option
	if tok := viper.GetString("token"); tok != "" {
		opts = append(opts, client.WithBearerToken(tok))
	}
	return client.New(serverURL, opts...)
}
