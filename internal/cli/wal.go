package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vytor/memcore/internal/storage"
)

// NewWALCommand creates the wal command group.
func NewWALCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wal",
		Short: "Inspect the write-ahead log",
	}
	cmd.AddCommand(newWALDumpCommand(rootOpts))
	return cmd
}

func newWALDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every record in the log with its checksum status",
		Long: `Print every complete record in the log, including records after the
first checksum failure. Replay stops at the first record marked "corrupt".

Examples:
  memcore wal dump --wal data/review.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpWAL(cmd.OutOrStdout(), rootOpts.Config.WALPath)
		},
	}
}

func dumpWAL(out io.Writer, path string) error {
	records, trailing, err := storage.ReadRecords(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%-8s %-8s %-8s %-6s %-11s %-10s %s\n", "OFFSET", "USER", "CARD", "RATING", "TIMESTAMP", "CHECKSUM", "STATUS")
	replayable := 0
	stopped := false
	for _, rs := range records {
		status := "ok"
		if !rs.Valid {
			status = "corrupt"
			stopped = true
		} else if !stopped {
			replayable++
		}
		fmt.Fprintf(out, "%-8d %-8d %-8d %-6d %-11d %08x   %s\n",
			rs.Offset, rs.UserID, rs.CardID, rs.Rating, rs.Timestamp, rs.Checksum, status)
	}
	fmt.Fprintf(out, "records=%d replayable=%d trailing_bytes=%d\n", len(records), replayable, trailing)
	return nil
}
