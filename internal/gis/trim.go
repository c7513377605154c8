package gis

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"civicmap/internal/types"

	shp "github.com/jonas-p/go-shp"
	"go.uber.org/zap"
)

// TrimmedPath returns the default output location for Trim: the input name
// with a "_trimmed" suffix, next to the input.
func TrimmedPath(in string) string {
	base := basename(in)
	return base + "_trimmed.shp"
}

// Trim writes a copy of a shapefile that keeps only the features whose joinOn
// attribute is a member of include. Membership uses typed equality with no
// case or type normalization. The companion .prj is copied when present.
// An empty output is valid. It returns the path of the new .shp file.
func Trim(in, joinOn string, include []any, out string) (string, error) {
	in = ResolvePath(in)
	if strings.EqualFold(filepath.Ext(in), ".zip") {
		return "", fmt.Errorf("%w: cannot trim %s in place; extract the archive first", types.ErrUsage, in)
	}
	if out == "" {
		out = TrimmedPath(in)
	} else if !strings.EqualFold(filepath.Ext(out), ".shp") {
		out += ".shp"
	}

	src, err := openShapes(in)
	if err != nil {
		return "", err
	}
	defer src.Close()

	fields := src.Fields()
	key := fieldIndex(fields, joinOn)
	if key < 0 {
		return "", fmt.Errorf("%w: join_on %q not in shapefile fields %v", types.ErrValidation, joinOn, fieldNames(fields))
	}

	allowed := types.NewIndex(include)

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", err
	}
	w, err := createShapefile(out, src.geometryType, fields)
	if err != nil {
		return "", err
	}

	kept, total := 0, 0
	for src.Next() {
		_, shape := src.Shape()
		if shape == nil {
			continue
		}
		total++
		if _, ok := allowed.Lookup(fieldValue(fields[key], src.Attribute(key))); !ok {
			continue
		}
		if err := w.write(shape, shp.Attributes(src)); err != nil {
			w.close()
			return "", err
		}
		kept++
	}
	if err := w.close(); err != nil {
		return "", err
	}
	if err := src.Err(); err != nil {
		return "", fmt.Errorf("read shapefile %s: %w", in, err)
	}

	if prj := basename(in) + ".prj"; fileExists(prj) {
		if err := copyFile(prj, basename(out)+".prj"); err != nil {
			return "", fmt.Errorf("copy projection file: %w", err)
		}
	}

	zap.L().Debug("trimmed shapefile",
		zap.String("in", in),
		zap.String("out", out),
		zap.Int("kept", kept),
		zap.Int("total", total))
	return out, nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
