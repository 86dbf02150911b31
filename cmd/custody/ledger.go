package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmerrifield20/custodyledger/internal/ledger"
	"github.com/jmerrifield20/custodyledger/pkg/client"
	"github.com/jmerrifield20/custodyledger/pkg/digest"
)

// errVerifyFailed makes verify and audit exit non-zero on a broken chain.
var errVerifyFailed = errors.New("ledger verification failed")

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Ask the server to verify the custody ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		v, err := c.Verify(cmd.Context())
		if err != nil {
			return err
		}
		if ok, err := emit(cmd.OutOrStdout(), outputFormat, v); err != nil {
			return err
		} else if !ok {
			printVerify(cmd.OutOrStdout(), v)
		}
		if !v.Valid {
			return errVerifyFailed
		}
		return nil
	},
}

// ── blocks ───────────────────────────────────────────────────────────────────

var blocksExport string

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Show or export the ledger blocks",
	Long: `Blocks prints the chain. With --export the chain is written to a file
(JSON, or YAML for .yaml/.yml) that "custody audit" can check offline.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		blocks, err := c.Blocks(cmd.Context())
		if err != nil {
			return err
		}
		if blocksExport != "" {
			if err := exportBlocks(blocksExport, blocks); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d block(s) to %s\n", len(blocks), blocksExport)
			return nil
		}
		if ok, err := emit(cmd.OutOrStdout(), outputFormat, blocks); ok || err != nil {
			return err
		}
		printBlocks(cmd.OutOrStdout(), blocks)
		return nil
	},
}

func init() {
	blocksCmd.Flags().StringVar(&blocksExport, "export", "", "Write the chain to this file")
}

// chainFile is the on-disk export format.
type chainFile struct {
	Blocks []client.Block `json:"blocks" yaml:"blocks"`
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func exportBlocks(path string, blocks []client.Block) error {
	format := "json"
	if isYAML(path) {
		format = "yaml"
	}
	var buf bytes.Buffer
	if _, err := emit(&buf, format, chainFile{Blocks: blocks}); err != nil {
		return fmt.Errorf("encode chain: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// loadChain reads an exported chain.
func loadChain(path string, r io.Reader) ([]ledger.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f chainFile
	if isYAML(path) {
		err = yaml.Unmarshal(data, &f)
	} else {
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	out := make([]ledger.Block, len(f.Blocks))
	for i, b := range f.Blocks {
		if !digest.Valid(b.Hash) || !digest.Valid(b.PreviousHash) {
			return nil, fmt.Errorf("decode %s: block %d: malformed hash", path, i)
		}
		out[i] = ledger.Block{
			Index:        b.Index,
			PreviousHash: b.PreviousHash,
			EvidenceID:   b.EvidenceID,
			Event:        b.Event,
			Timestamp:    b.Timestamp,
			Hash:         b.Hash,
			Action:       b.Action,
		}
	}
	return out, nil
}

// ── audit ────────────────────────────────────────────────────────────────────

var auditCmd = &cobra.Command{
	Use:   "audit <chain-file>",
	Short: "Verify an exported chain offline",
	Long: `Audit recomputes every block hash and link of a chain exported with
"custody blocks --export" without contacting the server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		blocks, err := loadChain(args[0], f)
		if err != nil {
			return err
		}
		v := auditBlocks(blocks)
		if ok, err := emit(cmd.OutOrStdout(), outputFormat, v); err != nil {
			return err
		} else if !ok {
			printVerify(cmd.OutOrStdout(), v)
		}
		if !v.Valid {
			return errVerifyFailed
		}
		return nil
	},
}

// auditBlocks runs the ledger checks over blocks and reports the result in
// the same shape the server uses.
func auditBlocks(blocks []ledger.Block) *client.VerifyResult {
	v := &client.VerifyResult{Valid: true, Blocks: len(blocks), Root: ledger.GenesisHash}
	if len(blocks) > 0 {
		v.Root = blocks[len(blocks)-1].Hash
	}
	var ie *ledger.IntegrityError
	if err := ledger.VerifyBlocks(blocks); errors.As(err, &ie) {
		idx := ie.Index
		v.Valid = false
		v.Index = &idx
		v.Reason = string(ie.Reason)
	}
	return v
}

// ── watch ────────────────────────────────────────────────────────────────────

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream ledger blocks as they are appended",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		err = c.Watch(ctx, func(b client.Block) error {
			if ok, err := emit(out, outputFormat, b); ok || err != nil {
				return err
			}
			kind := "register"
			if b.Event > 0 {
				kind = fmt.Sprintf("transfer #%d", b.Event)
			}
			fmt.Fprintf(out, "%s %s %s %s\n",
				label.Sprintf("#%d", b.Index), rfc3339(b.Timestamp), party.Sprint(b.EvidenceID), action.Sprint(kind))
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}
