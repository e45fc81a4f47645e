package main

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-marketplace/engine/source"
)

type seedOptions struct {
	File     string
	URL      string
	User     string
	Pass     string
	Database string
}

func newSeedCommand(root *rootOptions) *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert a listing dump into Neo4j as Listing nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.File, "file", "f", "", "listing dump (JSON array or envelope)")
	f.StringVar(&opts.URL, "neo4j", envOr("NEO4J_URL", "neo4j://localhost:7687"), "Neo4j URL")
	f.StringVar(&opts.User, "user", envOr("NEO4J_USER", "neo4j"), "Neo4j user")
	f.StringVar(&opts.Pass, "pass", envOr("NEO4J_PASS", "password"), "Neo4j password")
	f.StringVar(&opts.Database, "database", envOr("NEO4J_DATABASE", ""), "Neo4j database (server default when empty)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(cmd *cobra.Command, root *rootOptions, opts *seedOptions) error {
	store, err := root.loadStore(cmd, opts.File)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	driver, err := neo4j.NewDriverWithContext(opts.URL, neo4j.BasicAuth(opts.User, opts.Pass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(context.WithoutCancel(ctx))
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j connect: %w", err)
	}

	src, err := source.NewNeo4jSource(driver, opts.Database)
	if err != nil {
		return err
	}
	n, err := src.Seed(ctx, store.Records())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d listing(s)\n", n)
	return nil
}
