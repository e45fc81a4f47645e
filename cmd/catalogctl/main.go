// Command catalogctl queries listing dumps with the catalog engine and
// pushes them to the live services.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-marketplace/engine/catalog"
	"github.com/WessleyAI/wessley-marketplace/engine/source"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Verbose bool
	now     func() time.Time
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if !o.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// loadStore reads a listing dump and normalizes it. Dropped records are
// reported on stderr.
func (o *rootOptions) loadStore(cmd *cobra.Command, path string) (*catalog.Store, error) {
	raws, err := source.FileSource{Path: path}.Load(cmd.Context(), source.Query{})
	if err != nil {
		return nil, err
	}
	store, rep := catalog.LoadRaw(raws, o.now(), o.logger(cmd))
	if n := rep.DroppedCount(); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "dropped %d malformed listing(s); run with -v for details\n", n)
	}
	return store, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{now: time.Now}

	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Query and publish vehicle listing snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log load diagnostics to stderr")

	cmd.AddCommand(newQueryCommand(opts))
	cmd.AddCommand(newPublishCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "catalogctl:", err)
		os.Exit(1)
	}
}
