package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmerrifield20/custodyledger/internal/auth"
)

// ── login ────────────────────────────────────────────────────────────────────

var (
	loginOperator string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain an operator token and save it to the CLI config",
	Long: `Login exchanges operator credentials for a bearer token. The token and
server URL are saved to ~/.custody/config.yaml for later commands.

The password is read from --password or, when omitted, from stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := loginPassword
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			var err error
			if password, err = readLine(cmd.InOrStdin()); err != nil {
				return err
			}
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		tok, err := c.Login(cmd.Context(), loginOperator, password)
		if err != nil {
			return err
		}

		viper.Set("server_url", serverURL)
		viper.Set("token", tok.Token)
		path := viper.ConfigFileUsed()
		if path == "" {
			path = filepath.Join(configDir(), "config.yaml")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err := viper.WriteConfigAs(path); err != nil {
			return fmt.Errorf("save token: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s logged in as %s (expires %s)\n", okMark.Sprint("OK"), loginOperator, tok.ExpiresAt)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginOperator, "operator", "", "Operator name")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Operator password (prompted when empty)")
	_ = loginCmd.MarkFlagRequired("operator")
}

// ── hash-password ────────────────────────────────────────────────────────────

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for the auth.operators server config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		password, err := readLine(cmd.InOrStdin())
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
