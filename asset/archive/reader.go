package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/gridtrace/asset"
	"github.com/achilleasa/gridtrace/grid"
	"github.com/achilleasa/gridtrace/log"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingManifest    = errors.New("archive: missing manifest")
	ErrMissingData        = errors.New("archive: missing grid data")
	ErrUnsupportedVersion = errors.New("archive: unsupported format version")
)

// Information about an archived grid.
type Info struct {
	Version    int
	Created    time.Time
	Source     string
	Resolution [3]uint32
	References int
}

// Read and validate a grid archive from a local file or an http(s) URL.
func ReadGrid(ctx context.Context, filename string) (*grid.Grid, *Info, error) {
	res, err := asset.NewResource(ctx, filename, nil)
	if err != nil {
		return nil, nil, err
	}
	defer res.Close()

	return Read(res)
}

// Read and validate a grid archive from a resource.
func Read(res *asset.Resource) (*grid.Grid, *Info, error) {
	logger := log.New("archive reader")
	logger.Noticef(`loading grid archive from "%s"`, res.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := io.ReadAll(res)
	if err != nil {
		return nil, nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("archive: %s: %w", res.Path(), err)
	}

	var (
		mf *manifest
		g  *grid.Grid
	)
	for _, f := range zr.File {
		switch f.Name {
		case manifestFile:
			mf = &manifest{}
			err = decodeFile(f, func(r io.Reader) error { return yaml.NewDecoder(r).Decode(mf) })
		case dataFile:
			g = &grid.Grid{}
			err = decodeFile(f, func(r io.Reader) error { return gob.NewDecoder(r).Decode(g) })
		default:
			logger.Warningf("unknown file %s in grid archive; skipping", f.Name)
			continue
		}

		if err != nil {
			return nil, nil, fmt.Errorf("archive: failed to load %s: %w", f.Name, err)
		}
	}

	switch {
	case mf == nil:
		return nil, nil, fmt.Errorf("%w in %s", ErrMissingManifest, res.Path())
	case mf.Version != formatVersion:
		return nil, nil, fmt.Errorf("%w %d in %s", ErrUnsupportedVersion, mf.Version, res.Path())
	case g == nil:
		return nil, nil, fmt.Errorf("%w in %s", ErrMissingData, res.Path())
	}

	if err = g.Validate(); err != nil {
		return nil, nil, fmt.Errorf("archive: %s: %w", res.Path(), err)
	}

	logger.Noticef("loaded grid archive in %d ms", time.Since(start).Nanoseconds()/1e6)
	return g, &Info{
		Version:    mf.Version,
		Created:    mf.Created,
		Source:     mf.Source,
		Resolution: mf.Resolution,
		References: mf.References,
	}, nil
}

func decodeFile(f *zip.File, decode func(io.Reader) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	return decode(rc)
}
