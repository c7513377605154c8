package main

import (
	"fmt"
	"strings"

	"civicmap/internal/database"
	"civicmap/internal/gis"
	"civicmap/internal/types"

	"github.com/spf13/cobra"
)

func newMapCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map SHAPEFILE",
		Short: "Join a table onto a shapefile and write an HTML map",
		Long: `Map reads a table from a file (--data) or a database query (--sql), joins it onto
the features of SHAPEFILE whose --join-on attribute equals the table's --join-on
column and writes an interactive map.

Matching is typed: after --numeric conversion a number never equals a string,
so keep codes such as GEOIDs as text on both sides.

Examples:
  civicmap map tl_2019_08_tract --join-on GEOID --data income.csv \
    --numeric B19013_001E --color-by B19013_001E \
    --include "B19013_001E=Median income" --join-alias Tract --out income.html

  civicmap map counties.shp --join-on NAME --driver sqlite --dsn votes.db \
    --sql "SELECT county AS NAME, turnout FROM results" --numeric turnout \
    --color-by turnout --out turnout.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMap(cmd, args[0])
		},
	}

	cmd.Flags().String("join-on", "", "Column and shapefile attribute to join on")
	cmd.Flags().String("data", "", "Table file (.json, .csv or |-delimited text)")
	cmd.Flags().String("sql", "", "Query returning the table")
	cmd.Flags().String("driver", "", "Database driver for --sql (oracle or sqlite)")
	cmd.Flags().String("dsn", "", "Database file or connection string for --sql")
	cmd.Flags().StringSlice("headers", nil, "Only load these columns from --data")
	cmd.Flags().StringSlice("numeric", nil, "Convert these columns to numbers")
	cmd.Flags().String("color-by", "", "Numeric column that shades the features")
	cmd.Flags().StringArray("include", nil, "Tooltip field, optionally FIELD=ALIAS (repeatable)")
	cmd.Flags().String("join-alias", "", "Show the join field first in the tooltip under this label")
	cmd.Flags().Bool("trim", false, "Drop features without a matching row before drawing")
	cmd.Flags().StringP("out", "o", "", "HTML file to write")
	_ = cmd.MarkFlagRequired("join-on")
	_ = cmd.MarkFlagRequired("out")
	cmd.MarkFlagsOneRequired("data", "sql")
	cmd.MarkFlagsMutuallyExclusive("data", "sql")

	return cmd
}

func (a *app) runMap(cmd *cobra.Command, shapefile string) error {
	flags := cmd.Flags()
	joinOn, _ := flags.GetString("join-on")
	colorBy, _ := flags.GetString("color-by")
	joinAlias, _ := flags.GetString("join-alias")
	trim, _ := flags.GetBool("trim")
	out, _ := flags.GetString("out")
	numeric, _ := flags.GetStringSlice("numeric")
	includes, _ := flags.GetStringArray("include")

	data, err := a.loadData(cmd)
	if err != nil {
		return err
	}
	for _, col := range numeric {
		if err := data.Apply(col, col, types.ParseFloat); err != nil {
			return err
		}
	}

	opts, err := a.mapOptions()
	if err != nil {
		return err
	}
	opts.ColorBy = colorBy
	opts.Include = parseIncludes(includes)
	opts.JoinOnAlias = joinAlias
	opts.Trim = trim
	opts.SaveTo = out

	layer, err := gis.MakeMap(shapefile, data, joinOn, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d features)\n", out, len(layer.Data.Features))
	return nil
}

func (a *app) loadData(cmd *cobra.Command) (*types.Dataset, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("data")
	headers, _ := flags.GetStringSlice("headers")
	if path != "" {
		return types.ReadTable(path, headers)
	}

	query, _ := flags.GetString("sql")
	cfg := database.LoadConfig()
	if driver, _ := flags.GetString("driver"); driver != "" {
		cfg.Driver = driver
	}
	if dsn, _ := flags.GetString("dsn"); dsn != "" {
		cfg.DSN = dsn
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.QueryDataset(cmd.Context(), query)
}

// mapOptions applies the configured style.
func (a *app) mapOptions() (gis.MapOptions, error) {
	s := a.cfg.Style
	scale, err := gis.NewLinearScale(s.LowColor, s.HighColor)
	if err != nil {
		return gis.MapOptions{}, err
	}

	m := gis.NewMap()
	if s.Tiles != "" {
		m.Tiles = s.Tiles
	}
	if s.Attribution != "" {
		m.Attribution = s.Attribution
	}

	return gis.MapOptions{
		Map:           m,
		Scale:         scale,
		Style:         gis.Style{Color: s.Outline, Weight: s.Weight, FillOpacity: s.FillOpacity},
		FallbackColor: s.FallbackColor,
		MissingValues: a.cfg.MissingValues(gis.MissingValues),
	}, nil
}

// parseIncludes turns FIELD or FIELD=ALIAS flags into a tooltip selection.
func parseIncludes(flags []string) any {
	if len(flags) == 0 {
		return nil
	}
	aliased := false
	for _, f := range flags {
		if strings.Contains(f, "=") {
			aliased = true
			break
		}
	}
	if !aliased {
		return flags
	}

	out := make([]gis.Alias, len(flags))
	for i, f := range flags {
		field, alias, ok := strings.Cut(f, "=")
		if !ok {
			alias = field
		}
		out[i] = gis.Alias{Field: field, Alias: alias}
	}
	return out
}
