package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"path/filepath"
	"testing"

	"github.com/achilleasa/gridtrace/asset"
	"github.com/achilleasa/gridtrace/grid"
	"github.com/achilleasa/gridtrace/types"
	"gopkg.in/yaml.v3"
)

func createTestGrid() *grid.Grid {
	return &grid.Grid{
		BBox:       grid.BBox{Min: types.XYZ(0, 0, 0), Max: types.XYZ(2, 1, 0)},
		Resolution: [3]uint32{2, 1, 1},
		CellSize:   types.XYZ(1, 1, 0),
		Cells: []grid.Cell{
			{Offset: 0, Count: 2},
			{Offset: 2, Count: 1},
		},
		References:    []uint32{0, 1, 1},
		TriangleCount: 2,
	}
}

func TestWriteReadGrid(t *testing.T) {
	g := createTestGrid()
	filename := filepath.Join(t.TempDir(), "grid.zip")

	if err := WriteGrid(g, "model.obj", filename); err != nil {
		t.Fatal(err)
	}

	loaded, info, err := ReadGrid(context.Background(), filename)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.BBox != g.BBox || loaded.Resolution != g.Resolution || loaded.CellSize != g.CellSize || loaded.TriangleCount != g.TriangleCount {
		t.Fatalf("expected loaded grid parameters to match; got %+v", loaded)
	}
	for i := range g.Cells {
		if loaded.Cells[i] != g.Cells[i] {
			t.Fatalf("expected cell %d to be %+v; got %+v", i, g.Cells[i], loaded.Cells[i])
		}
	}
	for i := range g.References {
		if loaded.References[i] != g.References[i] {
			t.Fatalf("expected references %v; got %v", g.References, loaded.References)
		}
	}

	if info.Version != formatVersion || info.Source != "model.obj" || info.Resolution != g.Resolution || info.References != 3 {
		t.Fatalf("unexpected archive info: %+v", info)
	}
	if info.Created.IsZero() {
		t.Fatal("expected archive creation time to be recorded")
	}
}

func TestReadErrors(t *testing.T) {
	invalidGrid := createTestGrid()
	invalidGrid.Cells[1].Offset = 1

	type spec struct {
		files  map[string]interface{}
		expErr error
	}
	specs := []spec{
		{map[string]interface{}{dataFile: createTestGrid()}, ErrMissingManifest},
		{map[string]interface{}{manifestFile: manifest{Version: 99}, dataFile: createTestGrid()}, ErrUnsupportedVersion},
		{map[string]interface{}{manifestFile: manifest{Version: formatVersion}}, ErrMissingData},
		{map[string]interface{}{manifestFile: manifest{Version: formatVersion}, dataFile: invalidGrid}, grid.ErrInvalidGrid},
	}

	for index, s := range specs {
		res := asset.NewResourceFromStream("test.zip", bytes.NewReader(buildZip(t, s.files)))
		_, _, err := Read(res)
		if !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}
}

func TestReadSkipsUnknownFiles(t *testing.T) {
	data := buildZip(t, map[string]interface{}{
		manifestFile: manifest{Version: formatVersion},
		dataFile:     createTestGrid(),
		"notes.txt":  "hello",
	})

	g, _, err := Read(asset.NewResourceFromStream("test.zip", bytes.NewReader(data)))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.References) != 3 {
		t.Fatalf("expected 3 references; got %d", len(g.References))
	}
}

func TestReadCorruptArchive(t *testing.T) {
	_, _, err := Read(asset.NewResourceFromStream("test.zip", bytes.NewReader([]byte("not a zip file"))))
	if err == nil {
		t.Fatal("expected an error when reading a corrupt archive")
	}
}

func TestWriteNilGrid(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, ""); err == nil {
		t.Fatal("expected an error when writing a nil grid")
	}
}

// Assemble a zip archive. Grids are gob-encoded, manifests are yaml-encoded
// and strings are stored as-is.
func buildZip(t *testing.T, files map[string]interface{}) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, contents := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}

		switch c := contents.(type) {
		case *grid.Grid:
			err = gob.NewEncoder(w).Encode(c)
		case manifest:
			enc := yaml.NewEncoder(w)
			if err = enc.Encode(&c); err == nil {
				err = enc.Close()
			}
		case string:
			_, err = w.Write([]byte(c))
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
