package main

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-marketplace/engine/source"
)

type publishOptions struct {
	File    string
	URL     string
	Subject string
	Source  string
}

func newPublishCommand(root *rootOptions) *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Push a listing dump to catalog services over NATS",
		Long: `Normalize a listing dump and publish it as a full snapshot. Running
catalog-api instances subscribed to the subject swap it in immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.File, "file", "f", "", "listing dump (JSON array or envelope)")
	f.StringVar(&opts.URL, "nats", envOr("NATS_URL", nats.DefaultURL), "NATS server URL")
	f.StringVar(&opts.Subject, "subject", source.SnapshotSubject, "snapshot subject")
	f.StringVar(&opts.Source, "source", "catalogctl", "source name stamped on the snapshot")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runPublish(cmd *cobra.Command, root *rootOptions, opts *publishOptions) error {
	store, err := root.loadStore(cmd, opts.File)
	if err != nil {
		return err
	}

	nc, err := nats.Connect(opts.URL, nats.Name("catalogctl"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	snap := source.NewSnapshot(opts.Source, store.Records(), root.now())
	if err := source.PublishSnapshot(cmd.Context(), nc, opts.Subject, snap); err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published snapshot %s with %d listing(s) to %s\n", snap.ID, store.Len(), opts.Subject)
	return nil
}
