package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/jmerrifield20/custodyledger/pkg/client"
)

var (
	heading = color.New(color.FgGreen, color.Bold)
	label   = color.New(color.FgYellow)
	party   = color.New(color.FgCyan)
	action  = color.New(color.FgMagenta)
	okMark  = color.New(color.FgGreen, color.Bold)
	badMark = color.New(color.FgRed, color.Bold)
)

// emit writes v in the selected structured format. It reports false for
// "text" so the caller renders its own view.
func emit(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

func rfc3339(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

// historyLine renders one custody event as "from -> to [time] - action".
func historyLine(ev client.CustodyEvent) string {
	from := "None"
	if ev.From != nil {
		from = *ev.From
	}
	return fmt.Sprintf("%s -> %s [%s] - %s",
		party.Sprint(from),
		party.Sprint(ev.To),
		rfc3339(ev.Timestamp),
		action.Sprint(ev.Action),
	)
}

// printEvidence renders the registered-evidence listing.
func printEvidence(w io.Writer, items []client.Evidence) {
	heading.Fprintln(w, "=== Registered Evidence ===")
	if len(items) == 0 {
		fmt.Fprintln(w, "No evidence registered.")
		return
	}
	for _, e := range items {
		fmt.Fprintln(w, label.Sprint("ID:"), e.ID)
		fmt.Fprintln(w, label.Sprint("Hash:"), e.ContentHash)
		fmt.Fprintln(w, label.Sprint("Current Custodian:"), e.CurrentCustodian)
		fmt.Fprintln(w, label.Sprint("Created At:"), rfc3339(e.CreatedAt))
		label.Fprintln(w, "History:")
		for _, ev := range e.History {
			fmt.Fprintln(w, "  "+historyLine(ev))
		}
		fmt.Fprintln(w, strings.Repeat("-", 50))
	}
}

// printBlocks renders the chain as a table.
func printBlocks(w io.Writer, blocks []client.Block) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tEVIDENCE\tEVENT\tTIMESTAMP\tHASH\tPREVIOUS")
	for _, b := range blocks {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			b.Index, b.EvidenceID, b.Event, rfc3339(b.Timestamp), short(b.Hash), short(b.PreviousHash))
	}
	tw.Flush()
}

// printVerify renders a verification outcome.
func printVerify(w io.Writer, v *client.VerifyResult) {
	if v.Valid {
		fmt.Fprintf(w, "%s ledger verified: %d block(s), root %s\n", okMark.Sprint("OK"), v.Blocks, short(v.Root))
		return
	}
	idx := -1
	if v.Index != nil {
		idx = *v.Index
	}
	fmt.Fprintf(w, "%s ledger verification failed at block %d (%s)\n", badMark.Sprint("FAIL"), idx, v.Reason)
}

func short(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
