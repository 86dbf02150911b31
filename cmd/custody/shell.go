package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmerrifield20/custodyledger/pkg/client"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive menu: register, transfer, verify, view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		return newShell(c, cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context())
	},
}

// shellAPI is the part of *client.Client the shell drives.
type shellAPI interface {
	Register(ctx context.Context, req client.RegisterRequest) (*client.RegisterResult, error)
	Transfer(ctx context.Context, id, custodian string) (*client.TransferResult, error)
	Verify(ctx context.Context) (*client.VerifyResult, error)
	ListEvidence(ctx context.Context) ([]client.Evidence, error)
}

var menuItems = []string{"Register Evidence", "Transfer Custody", "Verify Chain", "View Evidence", "Exit"}

type shell struct {
	api shellAPI
	in  *bufio.Scanner
	out io.Writer
}

func newShell(api shellAPI, in io.Reader, out io.Writer) *shell {
	return &shell{api: api, in: bufio.NewScanner(in), out: out}
}

// run loops over the menu until Exit, "q" or end of input. Command failures
// are reported and the loop continues.
func (s *shell) run(ctx context.Context) error {
	for {
		heading.Fprintln(s.out, "=== Forensic Custody System ===")
		for i, item := range menuItems {
			fmt.Fprintf(s.out, "  %d) %s\n", i+1, item)
		}
		choice, ok := s.prompt("Select: ")
		if !ok {
			return nil
		}

		var err error
		switch strings.ToLower(choice) {
		case "1", "register":
			err = s.register(ctx)
		case "2", "transfer":
			err = s.transfer(ctx)
		case "3", "verify":
			err = s.verify(ctx)
		case "4", "view":
			err = s.view(ctx)
		case "5", "exit", "q", "quit":
			return nil
		default:
			fmt.Fprintf(s.out, "Unknown option %q\n", choice)
			continue
		}
		if err != nil {
			fmt.Fprintln(s.out, badMark.Sprint("Error:"), err)
		}
		fmt.Fprintln(s.out)
	}
}

// prompt prints p and reads one trimmed line. ok is false at end of input.
func (s *shell) prompt(p string) (string, bool) {
	fmt.Fprint(s.out, p)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// promptDefault is prompt with a fallback for an empty answer.
func (s *shell) promptDefault(p, def string) (string, bool) {
	v, ok := s.prompt(fmt.Sprintf("%s [%s]: ", p, def))
	if ok && v == "" {
		v = def
	}
	return v, ok
}

func (s *shell) register(ctx context.Context) error {
	id, ok := s.prompt("Enter Evidence ID: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	content, ok := s.prompt("Enter evidence content: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	custodian, ok := s.promptDefault("Custodian", "Investigator")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	res, err := s.api.Register(ctx, client.RegisterRequest{ID: id, Content: []byte(content), Custodian: custodian})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s Evidence %s registered successfully!\n", okMark.Sprint("OK"), res.ID)
	return nil
}

func (s *shell) transfer(ctx context.Context) error {
	id, ok := s.prompt("Enter Evidence ID to transfer: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	to, ok := s.promptDefault("New custodian", "EvidenceOfficer")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	res, err := s.api.Transfer(ctx, id, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s Custody of %s transferred to %s\n", okMark.Sprint("OK"), res.ID, res.NewCustodian)
	return nil
}

func (s *shell) verify(ctx context.Context) error {
	v, err := s.api.Verify(ctx)
	if err != nil {
		return err
	}
	printVerify(s.out, v)
	return nil
}

func (s *shell) view(ctx context.Context) error {
	items, err := s.api.ListEvidence(ctx)
	if err != nil {
		return err
	}
	printEvidence(s.out, items)
	return nil
}
