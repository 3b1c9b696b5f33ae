package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/boardsync/internal/repair"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool               `json:"valid"`
	Records    int                `json:"records"`
	Violations []repair.Violation `json:"violations,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scene.json>",
		Short: "Check that a scene is strictly ordered",
		Long: `Check that every record in a scene has a well-formed order key
strictly greater than the key before it.

Each offending record is reported with its neighbours, rendered as
key:id:deleted:version:nonce. Use "repair" to fix the scene.

Exit codes:
  0 - Scene is validly ordered
  1 - One or more keys are missing, malformed or out of order
  2 - Command error (unreadable file, bad configuration)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	recs, err := loadRecords(f, cmd, path)
	if err != nil {
		return err
	}
	rep, err := opts.repairer()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid alphabet", err)
	}

	checkErr := rep.Check(recs)
	if checkErr == nil {
		if f.JSON() {
			return f.Success(ValidationResult{Valid: true, Records: len(recs)})
		}
		f.Pass("%d record(s) validly ordered", len(recs))
		return nil
	}

	var invalid *repair.InvalidOrderError
	if !errors.As(checkErr, &invalid) {
		return f.Fail(ExitCommandError, ErrCodeInvalidOrder, "validation failed", checkErr)
	}

	if f.JSON() {
		if err := f.Error(ErrCodeInvalidOrder, "order keys invariant compromised", ValidationResult{
			Valid:      false,
			Records:    len(recs),
			Violations: invalid.Violations,
		}); err != nil {
			return err
		}
	} else {
		f.Failed("%d of %d record(s) out of order", len(invalid.Violations), len(recs))
		for _, v := range invalid.Violations {
			f.Note("%s", v.String())
		}
	}
	return NewExitError(ExitFailure, ErrCodeInvalidOrder+": order keys invariant compromised")
}
