package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/boardsync/internal/ir"
)

// RepairOptions holds flags for the repair command.
type RepairOptions struct {
	*RootOptions
	FromScratch bool
	Output      string
}

// RepairResult is the repair command's JSON payload.
type RepairResult struct {
	Records  []ir.Record `json:"records"`
	Repaired []int       `json:"repaired"`
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RepairOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repair <scene.json>",
		Short: "Rewrite order keys that break strict ordering",
		Long: `Rewrite the order keys of records that are missing, malformed or
out of order, leaving records that already fit untouched. Record order
is preserved and versions are never changed.

--from-scratch trusts nothing: every key is checked against the last
accepted key only, which suits data of unknown provenance.

Examples:
  boardsync repair scene.json
  boardsync repair scene.json --from-scratch -o fixed.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.FromScratch, "from-scratch", false, "validate every key against its predecessor only")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the repaired records to this file")

	return cmd
}

func runRepair(opts *RepairOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	recs, err := loadRecords(f, cmd, path)
	if err != nil {
		return err
	}
	rep, err := opts.repairer()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid alphabet", err)
	}

	var changed []int
	if opts.FromScratch {
		changed, err = rep.RepairFromScratch(recs)
	} else {
		changed, err = rep.FixInvalidIndices(recs)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeMerge, "repair failed", err)
	}
	if changed == nil {
		changed = []int{}
	}

	if opts.Output != "" {
		if err := writeRecordsFile(opts.Output, recs); err != nil {
			return f.Fail(ExitCommandError, ErrCodeIO, "cannot write "+opts.Output, err)
		}
		f.VerboseLog("wrote %d record(s) to %s", len(recs), opts.Output)
	}

	if f.JSON() {
		return f.Success(RepairResult{Records: recs, Repaired: changed})
	}
	writeRecordList(cmd.OutOrStdout(), recs)
	fmt.Fprintf(cmd.OutOrStdout(), "repaired %d of %d record(s)\n", len(changed), len(recs))
	return nil
}
