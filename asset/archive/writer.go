package archive

import (
	"archive/zip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/achilleasa/gridtrace/grid"
	"github.com/achilleasa/gridtrace/log"
	"gopkg.in/yaml.v3"
)

const (
	// The gob-encoded grid.
	dataFile = "grid.bin"

	// A human-readable summary of the archive contents.
	manifestFile = "manifest.yaml"

	// Bumped whenever the encoded grid layout changes.
	formatVersion = 1
)

// The archive manifest.
type manifest struct {
	Version       int       `yaml:"version"`
	Created       time.Time `yaml:"created"`
	Source        string    `yaml:"source,omitempty"`
	Resolution    [3]uint32 `yaml:"resolution,flow"`
	TriangleCount uint32    `yaml:"triangles"`
	Cells         int       `yaml:"cells"`
	References    int       `yaml:"references"`
}

// Write a grid archive to filename. The source argument is recorded in the
// archive manifest and may be empty.
func WriteGrid(g *grid.Grid, source, filename string) error {
	logger := log.New("archive writer")
	logger.Noticef("writing grid archive to %s", filename)
	start := time.Now()

	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err = Write(f, g, source); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	logger.Noticef("wrote grid archive in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Write a grid archive to w.
func Write(w io.Writer, g *grid.Grid, source string) error {
	if g == nil {
		return fmt.Errorf("archive: nil grid")
	}

	zw := zip.NewWriter(w)

	mw, err := zw.Create(manifestFile)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(mw)
	err = enc.Encode(&manifest{
		Version:       formatVersion,
		Created:       time.Now().UTC(),
		Source:        source,
		Resolution:    g.Resolution,
		TriangleCount: g.TriangleCount,
		Cells:         len(g.Cells),
		References:    len(g.References),
	})
	if err != nil {
		return fmt.Errorf("archive: could not encode manifest: %w", err)
	}
	if err = enc.Close(); err != nil {
		return err
	}

	dw, err := zw.Create(dataFile)
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(dw).Encode(g); err != nil {
		return fmt.Errorf("archive: could not encode grid: %w", err)
	}

	return zw.Close()
}
