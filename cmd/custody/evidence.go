package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmerrifield20/custodyledger/pkg/client"
)

// ── register ─────────────────────────────────────────────────────────────────

var (
	registerFile      string
	registerContent   string
	registerCustodian string
)

var registerCmd = &cobra.Command{
	Use:   "register <evidence-id>",
	Short: "Register a new evidence item",
	Long: `Register hashes the evidence content with SHA-256 on the server and
anchors the item in the custody ledger.

  custody register EV-001 --file photo.jpg --custodian Investigator
  custody register EV-002 --content "handwritten note" `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := []byte(registerContent)
		if registerFile != "" {
			var err error
			if registerFile == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(registerFile)
			}
			if err != nil {
				return fmt.Errorf("read evidence content: %w", err)
			}
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Register(cmd.Context(), client.RegisterRequest{
			ID:        args[0],
			Content:   content,
			Custodian: registerCustodian,
		})
		if err != nil {
			return err
		}
		if ok, err := emit(cmd.OutOrStdout(), outputFormat, res); ok || err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Evidence %s registered successfully!\n", okMark.Sprint("OK"), res.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "  hash:  %s\n  block: %d (%s)\n", res.ContentHash, res.BlockIndex, short(res.BlockHash))
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerFile, "file", "", "Read content from file (- for stdin)")
	registerCmd.Flags().StringVar(&registerContent, "content", "", "Inline content")
	registerCmd.Flags().StringVar(&registerCustodian, "custodian", "Investigator", "Initial custodian role")
	registerCmd.MarkFlagsMutuallyExclusive("file", "content")
}

// ── transfer ─────────────────────────────────────────────────────────────────

var transferTo string

var transferCmd = &cobra.Command{
	Use:   "transfer <evidence-id>",
	Short: "Transfer custody of an evidence item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Transfer(cmd.Context(), args[0], transferTo)
		if err != nil {
			return err
		}
		if ok, err := emit(cmd.OutOrStdout(), outputFormat, res); ok || err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Custody of %s transferred %s -> %s\n",
			okMark.Sprint("OK"), res.ID, party.Sprint(res.PreviousCustodian), party.Sprint(res.NewCustodian))
		if res.BlockIndex >= 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  anchored in block %d\n", res.BlockIndex)
		}
		return nil
	},
}

func init() {
	transferCmd.Flags().StringVar(&transferTo, "to", "EvidenceOfficer", "New custodian role")
}

// ── list ─────────────────────────────────────────────────────────────────────

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered evidence with full custody history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		items, err := c.ListEvidence(cmd.Context())
		if err != nil {
			return err
		}
		if ok, err := emit(cmd.OutOrStdout(), outputFormat, items); ok || err != nil {
			return err
		}
		printEvidence(cmd.OutOrStdout(), items)
		return nil
	},
}

// ── history ──────────────────────────────────────────────────────────────────

var historyCmd = &cobra.Command{
	Use:   "history <evidence-id>",
	Short: "Show the custody history of one item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		history, err := c.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if ok, err := emit(cmd.OutOrStdout(), outputFormat, history); ok || err != nil {
			return err
		}
		for _, ev := range history {
			fmt.Fprintln(cmd.OutOrStdout(), historyLine(ev))
		}
		return nil
	},
}

// ── roles ────────────────────────────────────────────────────────────────────

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the accepted custodian roles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		roles, err := c.Roles(cmd.Context())
		if err != nil {
			return err
		}
		if ok, err := emit(cmd.OutOrStdout(), outputFormat, roles); ok || err != nil {
			return err
		}
		for _, r := range roles {
			fmt.Fprintln(cmd.OutOrStdout(), r)
		}
		return nil
	},
}
