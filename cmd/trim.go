package main

import (
	"fmt"

	"civicmap/internal/gis"
	"civicmap/internal/types"

	"github.com/spf13/cobra"
)

func newTrimCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trim SHAPEFILE",
		Short: "Copy a shapefile keeping only features with the given key values",
		Long: `Trim writes a copy of SHAPEFILE with only the features whose --join-on attribute
equals one of the --include values. Values are compared as text unless --numeric
is set. The output defaults to <name>_trimmed.shp next to the input.

Example:
  civicmap trim tl_2019_48_tract --join-on COUNTYFP --include 439 --include 113`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTrim(cmd, args[0])
		},
	}

	cmd.Flags().String("join-on", "", "Attribute to filter on")
	cmd.Flags().StringSlice("include", nil, "Values to keep")
	cmd.Flags().Bool("numeric", false, "Compare --include values as numbers")
	cmd.Flags().StringP("out", "o", "", "Output shapefile")
	_ = cmd.MarkFlagRequired("join-on")

	return cmd
}

func (a *app) runTrim(cmd *cobra.Command, shapefile string) error {
	flags := cmd.Flags()
	joinOn, _ := flags.GetString("join-on")
	values, _ := flags.GetStringSlice("include")
	numeric, _ := flags.GetBool("numeric")
	out, _ := flags.GetString("out")

	include, err := includeValues(values, numeric)
	if err != nil {
		return err
	}

	path, err := gis.Trim(shapefile, joinOn, include, out)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func includeValues(values []string, numeric bool) ([]any, error) {
	include := make([]any, len(values))
	for i, v := range values {
		if !numeric {
			include[i] = v
			continue
		}
		f, err := types.ParseFloat(v)
		if err != nil {
			return nil, err
		}
		include[i] = f
	}
	return include, nil
}
