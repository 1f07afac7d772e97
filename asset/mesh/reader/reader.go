package reader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/gridtrace/asset"
	"github.com/achilleasa/gridtrace/asset/mesh"
)

// The Reader interface is implemented by all mesh readers.
type Reader interface {
	// Read a mesh from a resource.
	Read(ctx context.Context, res *asset.Resource) (*mesh.Mesh, error)
}

// Read a mesh from a local file or an http(s) URL. The reader is selected
// based on the file extension.
func ReadMesh(ctx context.Context, filename string) (*mesh.Mesh, error) {
	var reader Reader
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".obj":
		reader = newWavefrontReader()
	default:
		return nil, fmt.Errorf("readMesh: unsupported file format %q", filepath.Ext(filename))
	}

	res, err := asset.NewResource(ctx, filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return reader.Read(ctx, res)
}
