package gis

import (
	"fmt"
	"io"
	"os"
	"strings"

	shp "github.com/jonas-p/go-shp"
)

// shapeWriter wraps shp.Writer so callers get errors instead of silently
// ignored writes, and so the attribute table ends up under the right name.
type shapeWriter struct {
	w      *shp.Writer
	base   string
	fields []shp.Field
}

// createShapefile creates <base>.shp, <base>.shx and <base>.dbf for shapes of
// type t with the given attribute schema.
func createShapefile(path string, t shp.ShapeType, fields []shp.Field) (*shapeWriter, error) {
	base := basename(path)
	w, err := shp.Create(base+".shp", t)
	if err != nil {
		return nil, fmt.Errorf("create shapefile %s: %w", base+".shp", err)
	}
	if err := w.SetFields(fields); err != nil {
		w.Close()
		return nil, fmt.Errorf("create attribute table for %s: %w", base+".shp", err)
	}
	return &shapeWriter{w: w, base: base, fields: fields}, nil
}

// write appends one shape and its raw attribute values, space-padded to the
// field width.
func (sw *shapeWriter) write(shape shp.Shape, attrs []string) error {
	row := int(sw.w.Write(shape))
	for i, f := range sw.fields {
		if i >= len(attrs) {
			break
		}
		if err := sw.w.WriteAttribute(row, i, padField(f, attrs[i])); err != nil {
			return fmt.Errorf("write attribute %s of row %d: %w", sw.fields[i].String(), row, err)
		}
	}
	return nil
}

// padField space-pads v to the width of f. Numbers are right-justified,
// everything else left-justified.
func padField(f shp.Field, v string) string {
	n := int(f.Size) - len(v)
	if n <= 0 {
		return v
	}
	switch f.Fieldtype {
	case 'N', 'F':
		return strings.Repeat(" ", n) + v
	default:
		return v + strings.Repeat(" ", n)
	}
}

// close flushes headers. go-shp v0.1.1 names the attribute table "<base>dbf"
// (no dot), so it is moved next to the .shp where readers look for it.
func (sw *shapeWriter) close() error {
	sw.w.Close()

	misnamed := sw.base + "dbf"
	if _, err := os.Stat(misnamed); err == nil {
		if err := os.Rename(misnamed, sw.base+".dbf"); err != nil {
			return fmt.Errorf("rename attribute table: %w", err)
		}
	}
	return nil
}

// copyFile copies src to dst, replacing dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
