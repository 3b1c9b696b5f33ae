package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/replica"
	"github.com/roach88/boardsync/internal/store"
)

// SceneOptions holds flags shared by the scene subcommands.
type SceneOptions struct {
	*RootOptions
	DBPath  string // defaults to the configured store path
	SceneID string
}

// SceneView is the JSON form of a stored scene.
type SceneView struct {
	Scene   string        `json:"scene"`
	Digest  string        `json:"digest"`
	Records []ir.Record   `json:"records"`
	Batches []store.Batch `json:"batches,omitempty"`
}

// NewSceneCommand creates the scene command group.
func NewSceneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SceneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Manage scenes in the local store",
		Long: `Import, export, inspect and merge scenes kept in the SQLite store.

Every write is logged as a numbered batch together with the resulting
scene digest. Scenes loaded from the store are repaired before use.`,
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database path (default from config)")
	cmd.PersistentFlags().StringVar(&opts.SceneID, "scene", "default", "scene id")

	cmd.AddCommand(newSceneImportCommand(opts))
	cmd.AddCommand(newSceneExportCommand(opts))
	cmd.AddCommand(newSceneShowCommand(opts))
	cmd.AddCommand(newSceneMergeCommand(opts))
	cmd.AddCommand(newSceneListCommand(opts))

	return cmd
}

// openStore opens the configured database with the configured alphabet.
func (o *SceneOptions) openStore(f *OutputFormatter) (*store.Store, error) {
	rep, err := o.repairer()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "invalid alphabet", err)
	}
	path := o.DBPath
	if path == "" {
		path = o.config().StorePath
	}
	f.VerboseLog("opening store %s", path)
	st, err := store.Open(path, store.WithRepairer(rep))
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "cannot open store "+path, err)
	}
	return st, nil
}

func newSceneImportCommand(opts *SceneOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <scene.json>",
		Short: "Replace a stored scene with the records in a file",
		Long: `Replace a stored scene with the records in a file. The records are
repaired first and the write is logged as a batch with source "import".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			recs, err := loadRecords(f, cmd, args[0])
			if err != nil {
				return err
			}
			rep, err := opts.repairer()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, "invalid alphabet", err)
			}
			changed, err := rep.FixInvalidIndices(recs)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeMerge, "repair failed", err)
			}

			st, err := opts.openStore(f)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			seq, err := st.LastSeq(ctx, opts.SceneID)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "cannot read batch log", err)
			}
			if err := st.Commit(ctx, opts.SceneID, seq+1, "import", recs); err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "cannot save scene", err)
			}
			return renderScene(f, cmd, st, opts.SceneID, fmt.Sprintf("imported %d record(s), %d repaired", len(recs), len(changed)))
		},
	}
}

func newSceneExportCommand(opts *SceneOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Write a stored scene as a JSON record array",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			st, err := opts.openStore(f)
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := loadScene(f, cmd.Context(), st, opts.SceneID)
			if err != nil {
				return err
			}
			if output != "" {
				if err := writeRecordsFile(output, recs); err != nil {
					return f.Fail(ExitCommandError, ErrCodeIO, "cannot write "+output, err)
				}
				f.VerboseLog("wrote %d record(s) to %s", len(recs), output)
			}
			if f.JSON() {
				return f.Success(recs)
			}
			if output == "" {
				writeRecordList(cmd.OutOrStdout(), recs)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the records to this file")
	return cmd
}

func newSceneShowCommand(opts *SceneOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show a stored scene and its batch log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			st, err := opts.openStore(f)
			if err != nil {
				return err
			}
			defer st.Close()
			return renderScene(f, cmd, st, opts.SceneID, "")
		},
	}
}

func newSceneListCommand(opts *SceneOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored scene ids",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			st, err := opts.openStore(f)
			if err != nil {
				return err
			}
			defer st.Close()

			ids, err := st.Scenes(cmd.Context())
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "cannot list scenes", err)
			}
			if f.JSON() {
				return f.Success(ids)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

// SceneMergeOptions holds flags for scene merge.
type SceneMergeOptions struct {
	*SceneOptions
	Source string
	Edits  []string
}

func newSceneMergeCommand(sceneOpts *SceneOptions) *cobra.Command {
	opts := &SceneMergeOptions{SceneOptions: sceneOpts}
	cmd := &cobra.Command{
		Use:   "merge <batch.json>",
		Short: "Reconcile a remote batch into a stored scene",
		Long: `Reconcile a remote batch into a stored scene through a replica and
persist the result. The batch is logged under --source.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSceneMerge(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Source, "source", "remote", "peer name logged with the batch")
	cmd.Flags().StringArrayVar(&opts.Edits, "edit", nil, "record under local edit, as id=kind")
	return cmd
}

// recordingPersister remembers the first persistence failure, which the
// replica itself only logs.
type recordingPersister struct {
	next replica.Persister
	err  error
}

func (p *recordingPersister) Persist(ctx context.Context, seq int64, source string, recs []ir.Record) error {
	err := p.next.Persist(ctx, seq, source, recs)
	if err != nil && p.err == nil {
		p.err = err
	}
	return err
}

func runSceneMerge(opts *SceneMergeOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	edit, err := parseEdits(opts.Edits)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeUsage, "invalid --edit", err)
	}
	batch, err := loadRecords(f, cmd, path)
	if err != nil {
		return err
	}
	gen, err := opts.generator()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid alphabet", err)
	}
	st, err := opts.openStore(f)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	local, err := st.LoadScene(ctx, opts.SceneID)
	if err != nil && !errors.Is(err, store.ErrSceneNotFound) {
		return f.Fail(ExitCommandError, ErrCodeStore, "cannot load scene", err)
	}
	seq, err := st.LastSeq(ctx, opts.SceneID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "cannot read batch log", err)
	}

	sink := &recordingPersister{next: st.Sink(opts.SceneID)}
	r, err := replica.New(opts.SceneID,
		replica.WithRecords(local),
		replica.WithGenerator(gen),
		replica.WithClock(replica.NewClockAt(seq)),
		replica.WithPersister(sink),
	)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeMerge, "cannot start replica", err)
	}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	if len(edit) > 0 {
		r.SetEditContext(edit)
	}
	r.ApplyRemote(opts.Source, batch)
	syncErr := r.Sync(ctx)
	r.Stop()
	if err := <-done; err != nil && syncErr == nil {
		syncErr = err
	}
	if syncErr != nil {
		return f.Fail(ExitCommandError, ErrCodeMerge, "merge did not complete", syncErr)
	}
	if sink.err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "cannot save scene", sink.err)
	}

	return renderScene(f, cmd, st, opts.SceneID,
		fmt.Sprintf("merged %d record(s) from %s at seq %d", len(batch), opts.Source, r.Clock().Current()))
}

// loadScene loads sceneID, mapping a missing scene to a command error.
func loadScene(f *OutputFormatter, ctx context.Context, st *store.Store, sceneID string) ([]ir.Record, error) {
	recs, err := st.LoadScene(ctx, sceneID)
	if errors.Is(err, store.ErrSceneNotFound) {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "scene not found: "+sceneID, nil)
	}
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "cannot load scene", err)
	}
	return recs, nil
}

// renderScene prints a stored scene with its batch log. summary, when
// set, is printed last in text mode.
func renderScene(f *OutputFormatter, cmd *cobra.Command, st *store.Store, sceneID, summary string) error {
	ctx := cmd.Context()
	recs, err := loadScene(f, ctx, st, sceneID)
	if err != nil {
		return err
	}
	digest, err := st.SceneDigest(ctx, sceneID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "cannot read digest", err)
	}
	batches, err := st.Batches(ctx, sceneID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "cannot read batch log", err)
	}

	if f.JSON() {
		return f.Success(SceneView{Scene: sceneID, Digest: digest, Records: recs, Batches: batches})
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "scene %s  digest %.16s\n", sceneID, digest)
	writeRecordList(w, recs)
	for _, b := range batches {
		f.Note("seq %d  %-8s %d record(s)  %.16s", b.Seq, b.Source, b.Records, b.Digest)
	}
	if summary != "" {
		fmt.Fprintln(w, summary)
	}
	return nil
}
