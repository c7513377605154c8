package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"civicmap/internal/gis"

	"github.com/spf13/cobra"
)

func newClassifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify SHAPEFILE",
		Short: "Report which polygon contains each point",
		Long: `Classify prints, as CSV, the --record-key attribute of the first polygon in
SHAPEFILE containing each point. Points outside every polygon get an empty value.

Coordinates are in the shapefile's own units, x before y. Use --project to
convert longitude/latitude into a projected layer's coordinates first.

Example:
  civicmap classify zoning.shp --record-key ZONE --project EPSG:2276 \
    --x -97.33,-97.35 --y 32.75,32.74`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClassify(cmd, args[0])
		},
	}

	cmd.Flags().String("record-key", "", "Attribute to report for the containing polygon")
	cmd.Flags().Float64Slice("x", nil, "X coordinates (longitude)")
	cmd.Flags().Float64Slice("y", nil, "Y coordinates (latitude)")
	cmd.Flags().String("project", "", "Project longitude/latitude with this EPSG code first")
	_ = cmd.MarkFlagRequired("record-key")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")

	return cmd
}

func (a *app) runClassify(cmd *cobra.Command, shapefile string) error {
	flags := cmd.Flags()
	recordKey, _ := flags.GetString("record-key")
	xs, _ := flags.GetFloat64Slice("x")
	ys, _ := flags.GetFloat64Slice("y")
	projection, _ := flags.GetString("project")

	inX := append([]float64(nil), xs...)
	inY := append([]float64(nil), ys...)
	if projection != "" {
		p, err := gis.LookupProjection(projection)
		if err != nil {
			return err
		}
		if err := gis.ProjectAll(p, xs, ys); err != nil {
			return err
		}
	}

	keys, err := gis.CoordinatesInShape(xs, ys, shapefile, recordKey)
	if err != nil {
		return err
	}
	return writeClassified(cmd.OutOrStdout(), recordKey, inX, inY, keys)
}

func writeClassified(out io.Writer, recordKey string, xs, ys []float64, keys []any) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"x", "y", recordKey}); err != nil {
		return err
	}
	for i, key := range keys {
		row := []string{
			strconv.FormatFloat(xs[i], 'f', -1, 64),
			strconv.FormatFloat(ys[i], 'f', -1, 64),
			cell(key),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// cell renders a dataset value for CSV output; nil is empty.
func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
