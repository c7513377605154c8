package census

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"civicmap/internal/types"

	"go.uber.org/zap"
)

// Geography is a TIGER/Line shapefile layer.
type Geography string

// Available geographies.
const (
	Tract                 Geography = "tract"
	CongressionalDistrict Geography = "congressional district"
	County                Geography = "county"
	State                 Geography = "state"
	ZCTA                  Geography = "zcta"
	Block                 Geography = "block"
	BlockGroup            Geography = "block group"
)

// Geographies lists every supported Geography.
var Geographies = []Geography{Tract, CongressionalDistrict, County, State, ZCTA, Block, BlockGroup}

// National reports whether the layer covers the whole country in one file.
func (g Geography) National() bool {
	switch g {
	case CongressionalDistrict, County, State, ZCTA:
		return true
	}
	return false
}

// congress maps a TIGER vintage to the congress whose districts it carries.
var congress = map[int]int{
	2020: 116,
	2019: 116,
	2018: 116,
	2017: 115,
	2016: 115,
	2015: 114,
	2014: 114,
	2013: 113,
	2012: 113,
	2011: 112,
}

// ShapefileURL returns the zip archive URL of a geography for a state FIPS
// code and vintage. National layers ignore fips. Block layers follow the
// 2014-2019 naming.
func (c *Client) ShapefileURL(geo Geography, fips string, year int) (string, error) {
	base := fmt.Sprintf("%s/TIGER%d", strings.TrimRight(c.tigerURL, "/"), year)

	switch geo {
	case Tract:
		return fmt.Sprintf("%s/TRACT/tl_%d_%s_tract.zip", base, year, fips), nil
	case CongressionalDistrict:
		cd, ok := congress[year]
		if !ok {
			return "", fmt.Errorf("%w: no congressional district layer known for %d", types.ErrLookup, year)
		}
		return fmt.Sprintf("%s/CD/tl_%d_us_cd%d.zip", base, year, cd), nil
	case County:
		return fmt.Sprintf("%s/COUNTY/tl_%d_us_county.zip", base, year), nil
	case State:
		return fmt.Sprintf("%s/STATE/tl_%d_us_state.zip", base, year), nil
	case ZCTA:
		return fmt.Sprintf("%s/ZCTA5/tl_%d_us_zcta510.zip", base, year), nil
	case Block:
		return fmt.Sprintf("%s/TABBLOCK/tl_%d_%s_tabblock10.zip", base, year, fips), nil
	case BlockGroup:
		return fmt.Sprintf("%s/BG/tl_%d_%s_bg.zip", base, year, fips), nil
	default:
		return "", fmt.Errorf("%w: unknown geography %q, want one of %v", types.ErrUsage, geo, Geographies)
	}
}

// FetchShapefile downloads and extracts a TIGER/Line shapefile and returns
// the directory it was extracted to, e.g. <cache>/tl_2019_08_tract. An
// existing directory is reused unless the client was built with Refresh.
func (c *Client) FetchShapefile(ctx context.Context, geo Geography, state string, year int) (string, error) {
	fips := "us"
	if !geo.National() || state != "" {
		var err error
		if fips, err = StateFIPS(state); err != nil {
			return "", err
		}
	}
	url, err := c.ShapefileURL(geo, fips, year)
	if err != nil {
		return "", err
	}

	name := strings.TrimSuffix(path.Base(url), ".zip")
	dir := filepath.Join(c.cacheDir, name)
	log := zap.L().With(zap.String("url", url), zap.String("dir", dir))

	if !c.refresh {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			log.Debug("using cached shapefile")
			return dir, nil
		}
	}

	log.Info("downloading shapefile")
	res, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("bad request. status code: %d url: %s", res.StatusCode(), url)
	}

	if err := extractZip(res.Body(), dir); err != nil {
		return "", fmt.Errorf("extract %s: %w", url, err)
	}
	return dir, nil
}

// extractZip unpacks an archive into dir, replacing dir if it exists.
func extractZip(data []byte, dir string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	if err != nil {
		return err
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(parent, filepath.Base(dir)+".partial-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	for _, f := range zr.File {
		if err := extractFile(f, tmp); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.Rename(tmp, dir)
}

func extractFile(f *zip.File, dir string) error {
	name := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: archive entry %q escapes the target directory", types.ErrValidation, f.Name)
	}
	target := filepath.Join(dir, name)

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
