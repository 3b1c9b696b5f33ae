package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/reconcile"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Edits  []string // id=kind pairs
	Output string   // write merged records here
}

// OutcomeView is the JSON form of one merge decision.
type OutcomeView struct {
	ID        string `json:"id"`
	Decision  string `json:"decision"`
	Protected bool   `json:"protected,omitempty"`
}

// ReconcileResult is the reconcile command's JSON payload.
type ReconcileResult struct {
	Records   []ir.Record   `json:"records"`
	Outcomes  []OutcomeView `json:"outcomes"`
	Repaired  []int         `json:"repaired"`
	Protected int           `json:"protected"`
	Digest    string        `json:"digest"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile <local.json> <remote.json>",
		Short: "Merge a remote batch into a local scene",
		Long: `Merge a remote batch of records into a local scene.

For every id the newer copy wins (higher version, then lower version
nonce). Records named with --edit keep their local copy. The merged
scene is sorted by order key and its keys are repaired where needed.

Examples:
  boardsync reconcile local.json remote.json
  boardsync reconcile local.json remote.json --edit r1=dragging
  boardsync reconcile local.json - --format json < batch.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Edits, "edit", nil, "record under local edit, as id=kind (dragging|resizing|editing_text|creating)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the merged records to this file")

	return cmd
}

func runReconcile(opts *ReconcileOptions, localPath, remotePath string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	edit, err := parseEdits(opts.Edits)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeUsage, "invalid --edit", err)
	}
	if len(edit) > 0 {
		f.VerboseLog("protecting %v", editNames(edit))
	}
	local, err := loadRecords(f, cmd, localPath)
	if err != nil {
		return err
	}
	remote, err := loadRecords(f, cmd, remotePath)
	if err != nil {
		return err
	}

	rc, err := opts.reconciler()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid alphabet", err)
	}
	report, err := rc.ReconcileWithReport(local, remote, edit)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeMerge, "reconcile failed", err)
	}
	digest, err := ir.SceneDigest(report.Records)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeMerge, "digest failed", err)
	}

	if opts.Output != "" {
		if err := writeRecordsFile(opts.Output, report.Records); err != nil {
			return f.Fail(ExitCommandError, ErrCodeIO, "cannot write "+opts.Output, err)
		}
		f.VerboseLog("wrote %d record(s) to %s", len(report.Records), opts.Output)
	}

	result := ReconcileResult{
		Records:   report.Records,
		Outcomes:  make([]OutcomeView, len(report.Outcomes)),
		Repaired:  report.Repaired,
		Protected: report.Protected,
		Digest:    digest,
	}
	if result.Repaired == nil {
		result.Repaired = []int{}
	}
	for i, o := range report.Outcomes {
		result.Outcomes[i] = OutcomeView{ID: o.ID, Decision: o.Decision.String(), Protected: o.Protected}
	}

	if f.JSON() {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	writeRecordList(w, report.Records)
	if opts.Verbose {
		for _, o := range result.Outcomes {
			f.Note("%s: %s", o.ID, o.Decision)
		}
	}
	fmt.Fprintf(w, "merged %d record(s): %d repaired, %d protected\n",
		len(report.Records), len(report.Repaired), report.Protected)
	return nil
}

// parseEdits turns id=kind flags into an edit context.
func parseEdits(pairs []string) (reconcile.EditContext, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	edit := make(reconcile.EditContext, len(pairs))
	for _, p := range pairs {
		id, kindName, ok := strings.Cut(p, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("expected id=kind, got %q", p)
		}
		kind, ok := reconcile.ParseEditKind(kindName)
		if !ok || kind == reconcile.EditNone {
			return nil, fmt.Errorf("unknown edit kind %q", kindName)
		}
		edit[id] = kind
	}
	return edit, nil
}

// editNames lists edited ids in sorted order.
func editNames(edit reconcile.EditContext) []string {
	ids := make([]string, 0, len(edit))
	for id := range edit {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func writeRecordsFile(path string, recs []ir.Record) error {
	if recs == nil {
		recs = []ir.Record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
