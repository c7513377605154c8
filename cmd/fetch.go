package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"civicmap/internal/census"
	"civicmap/internal/types"

	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download Census shapefiles and ACS tables",
		Long: `Fetch downloads TIGER/Line shapefiles and American Community Survey tables into
the cache directory. Cached downloads are reused unless --refresh is set.`,
	}
	cmd.PersistentFlags().Bool("refresh", false, "Ignore cached downloads")

	cmd.AddCommand(newFetchShapefileCmd(a))
	cmd.AddCommand(newFetchACSCmd(a))
	return cmd
}

func (a *app) censusClient(cmd *cobra.Command) *census.Client {
	refresh, _ := cmd.Flags().GetBool("refresh")
	return census.NewClient(census.Options{
		CacheDir: a.cfg.CacheDir,
		APIKey:   a.cfg.Census.APIKey,
		Refresh:  refresh,
	})
}

func newFetchShapefileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shapefile",
		Short: "Download a TIGER/Line shapefile and print its directory",
		Long: fmt.Sprintf(`Download a TIGER/Line shapefile and print the directory it was extracted to.

Geographies: %v. County, state, zcta and congressional district
layers cover the whole country and need no --state.

Example:
  civicmap fetch shapefile --geography tract --state CO --year 2019`, census.Geographies),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			geo, _ := cmd.Flags().GetString("geography")
			state, _ := cmd.Flags().GetString("state")
			year, _ := cmd.Flags().GetInt("year")

			dir, err := a.censusClient(cmd).FetchShapefile(cmd.Context(), census.Geography(geo), state, year)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}

	cmd.Flags().String("geography", string(census.Tract), "Layer to download")
	cmd.Flags().String("state", "", "State postal code, name or FIPS code")
	cmd.Flags().Int("year", 2019, "TIGER/Line vintage")
	return cmd
}

func newFetchACSCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acs",
		Short: "Query the American Community Survey and write CSV",
		Long: `Query the Census data API and write the table as CSV to --out or stdout.

A Census API key is read from census.api_key in the configuration file.

Example:
  civicmap fetch acs --year 2019 --get NAME,B19013_001E --for "tract:*" \
    --in state:08 --in county:031 --out income.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			var r census.ACSRequest
			r.Dataset, _ = flags.GetString("dataset")
			r.Year, _ = flags.GetInt("year")
			r.Get, _ = flags.GetStringSlice("get")
			r.For, _ = flags.GetString("for")
			r.In, _ = flags.GetStringArray("in")
			r.Headers, _ = flags.GetStringSlice("headers")
			out, _ := flags.GetString("out")

			data, err := a.censusClient(cmd).GetACS(cmd.Context(), r)
			if err != nil {
				return err
			}
			if out == "" {
				return writeDataset(cmd.OutOrStdout(), data)
			}
			return writeDatasetFile(out, data)
		},
	}

	cmd.Flags().String("dataset", "acs/acs5", "API dataset")
	cmd.Flags().Int("year", 2019, "Survey year")
	cmd.Flags().StringSlice("get", nil, "Variables to retrieve")
	cmd.Flags().String("for", "", "Geography clause, e.g. tract:*")
	cmd.Flags().StringArray("in", nil, "Enclosing geography, e.g. state:08 (repeatable)")
	cmd.Flags().StringSlice("headers", nil, "Only keep these columns")
	cmd.Flags().StringP("out", "o", "", "CSV file to write")
	_ = cmd.MarkFlagRequired("get")
	_ = cmd.MarkFlagRequired("for")
	return cmd
}

func writeDatasetFile(path string, data *types.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeDataset(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeDataset writes a header row followed by every row in column order.
func writeDataset(out io.Writer, data *types.Dataset) error {
	cols := data.Columns()
	w := csv.NewWriter(out)
	if err := w.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for i := 0; i < data.Len(); i++ {
		row := data.Row(i)
		for j, c := range cols {
			record[j] = cell(row[c])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
