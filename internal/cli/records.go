package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/boardsync/internal/ir"
)

// readInput returns the contents of path, or of stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// loadRecords reads a JSON record array from path and reports failures
// through f.
func loadRecords(f *OutputFormatter, cmd *cobra.Command, path string) ([]ir.Record, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeIO, "cannot read "+path, err)
	}
	recs, err := ir.DecodeRecords(data)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeDecode, "cannot decode "+path, err)
	}
	f.VerboseLog("read %d record(s) from %s", len(recs), path)
	return recs, nil
}

// writeRecordList prints one record per line as position, key, id and
// version/nonce, marking tombstones.
func writeRecordList(w io.Writer, recs []ir.Record) {
	for i, r := range recs {
		key := r.OrderKey
		if key == "" {
			key = "-"
		}
		line := fmt.Sprintf("%4d  %-12s %s  v%d/%d", i, key, r.ID, r.Version, r.VersionNonce)
		if r.Deleted {
			line += "  (deleted)"
		}
		fmt.Fprintln(w, line)
	}
}
