package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/WessleyAI/wessley-marketplace/engine/catalog"
	"github.com/WessleyAI/wessley-marketplace/pkg/fn"
)

type queryOptions struct {
	File    string
	Screen  string
	Screens string
	Format  string
}

// queryFlags maps command-line flags onto the URL parameters the engine
// accepts, so the CLI and the API share one vocabulary.
var queryFlags = []struct {
	flag, param, usage string
	multi              bool
}{
	{"search", "search", "free-text search", false},
	{"category", "category", "category", false},
	{"brand", "brand", "brand (repeatable)", true},
	{"condition", "condition", "condition (repeatable on multi-select screens)", true},
	{"fuel", "fuelType", "fuel type (repeatable on multi-select screens)", true},
	{"transmission", "transmission", "transmission (repeatable on multi-select screens)", true},
	{"location", "location", "location (repeatable)", true},
	{"feature", "feature", "required feature tag (repeatable)", true},
	{"status", "status", "moderation status (admin screen)", false},
	{"min-price", "minPrice", "lowest price", false},
	{"max-price", "maxPrice", "highest price", false},
	{"min-year", "minYear", "earliest model year", false},
	{"max-year", "maxYear", "latest model year", false},
	{"min-mileage", "minMileage", "lowest mileage", false},
	{"max-mileage", "maxMileage", "highest mileage", false},
	{"warranty", "hasWarranty", "only listings with a warranty (true/false)", false},
	{"featured", "isFeatured", "only featured listings (true/false)", false},
	{"recency", "recency", "listed within: all, 24h, 7d or 30d", false},
	{"sort", "sort", "sort as <key>-<order>, e.g. price-desc", false},
	{"per-page", "itemsPerPage", "items per page", false},
	{"page", "page", "page number", false},
}

func newQueryCommand(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter, sort and paginate a listing dump",
		Example: `  catalogctl query --file listings.json --brand Toyota --min-price 1000 --sort price-desc --page 2
  catalogctl query --file listings.json --screen admin --status pending --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.File, "file", "f", "", "listing dump (JSON array or envelope)")
	f.StringVar(&opts.Screen, "screen", "catalog", "screen profile")
	f.StringVar(&opts.Screens, "screens", "", "YAML file overriding screen profiles")
	f.StringVar(&opts.Format, "format", "text", "output format (text|json)")
	for _, q := range queryFlags {
		if q.multi {
			f.StringSlice(q.flag, nil, q.usage)
		} else {
			f.String(q.flag, "", q.usage)
		}
	}
	cmd.MarkFlagRequired("file")
	return cmd
}

// queryParams collects the flags the user actually set.
func queryParams(f *pflag.FlagSet) (url.Values, error) {
	v := url.Values{}
	for _, q := range queryFlags {
		if !f.Changed(q.flag) {
			continue
		}
		if q.multi {
			vals, err := f.GetStringSlice(q.flag)
			if err != nil {
				return nil, err
			}
			v[q.param] = vals
			continue
		}
		s, err := f.GetString(q.flag)
		if err != nil {
			return nil, err
		}
		v.Set(q.param, s)
	}
	return v, nil
}

func runQuery(cmd *cobra.Command, root *rootOptions, opts *queryOptions) error {
	if opts.Format != "text" && opts.Format != "json" {
		return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
	}
	profiles := catalog.BuiltinProfiles()
	if opts.Screens != "" {
		var err error
		if profiles, err = catalog.LoadProfilesFile(opts.Screens, profiles); err != nil {
			return err
		}
	}
	p, ok := profiles[opts.Screen]
	if !ok {
		return fmt.Errorf("unknown screen %q", opts.Screen)
	}

	params, err := queryParams(cmd.Flags())
	if err != nil {
		return err
	}
	store, err := root.loadStore(cmd, opts.File)
	if err != nil {
		return err
	}
	e, err := catalog.New(p, catalog.WithStore(store), catalog.WithClock(root.now), catalog.WithLogger(root.logger(cmd)))
	if err != nil {
		return err
	}
	e.ApplyQuery(params)
	view := e.View(cmd.Context())

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return printView(cmd.OutOrStdout(), view)
}

func printView(w io.Writer, v catalog.View) error {
	if v.Status == catalog.StatusEmpty {
		fmt.Fprintln(w, "no listings match; clear filters to see everything")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tVEHICLE\tYEAR\tPRICE\tMILEAGE\tLOCATION")
		for _, it := range v.Items {
			mileage := "-"
			if it.Mileage != nil {
				mileage = strconv.FormatFloat(*it.Mileage, 'f', 0, 64)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
				it.ID, it.Title(), it.Year, strconv.FormatFloat(it.Price, 'f', -1, 64), mileage, it.Location)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	pg := v.Pagination
	fmt.Fprintf(w, "\npage %d/%d, %d per page, %d listing(s)\n", pg.CurrentPage, pg.TotalPages, pg.ItemsPerPage, pg.TotalItems)
	if len(v.Chips) > 0 {
		labels := fn.Map(v.Chips, func(c catalog.Chip) string { return c.Label })
		fmt.Fprintf(w, "filters: %s\n", strings.Join(labels, "; "))
	}
	return nil
}
