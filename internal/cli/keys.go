package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/boardsync/internal/orderkey"
)

// KeysOptions holds flags for the keys command.
type KeysOptions struct {
	*RootOptions
	After  string
	Before string
	Count  int
	Jitter bool
}

// KeysResult is the keys command's JSON payload.
type KeysResult struct {
	After  string   `json:"after,omitempty"`
	Before string   `json:"before,omitempty"`
	Keys   []string `json:"keys"`
}

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeysOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate order keys between two bounds",
		Long: `Generate ascending order keys strictly between --after and --before.
An omitted bound is open: only --after appends, only --before prepends.

Keys are deterministic unless --jitter is given, in which case the
configured number of random symbols is appended to each key.

Examples:
  boardsync keys
  boardsync keys --after a0 --before a1 -n 3
  boardsync keys --after a5 --jitter`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.After, "after", "", "lower bound (exclusive)")
	cmd.Flags().StringVar(&opts.Before, "before", "", "upper bound (exclusive)")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "number of keys")
	cmd.Flags().BoolVar(&opts.Jitter, "jitter", false, "append random symbols")

	return cmd
}

func runKeys(opts *KeysOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Count < 0 {
		return f.Fail(ExitCommandError, ErrCodeUsage, fmt.Sprintf("count must not be negative, got %d", opts.Count), nil)
	}
	gen, err := opts.generator()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid alphabet", err)
	}

	var keys []string
	if opts.Jitter {
		keys, err = gen.JitteredKeysBetween(opts.After, opts.Before, opts.Count)
	} else {
		keys, err = gen.KeysBetween(opts.After, opts.Before, opts.Count)
	}
	if err != nil {
		code := ErrCodeUsage
		var violation *orderkey.OrderViolationError
		if errors.As(err, &violation) {
			code = ErrCodeInvalidOrder
		}
		return f.Fail(ExitCommandError, code, "cannot generate keys", err)
	}

	if f.JSON() {
		return f.Success(KeysResult{After: opts.After, Before: opts.Before, Keys: keys})
	}
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}
