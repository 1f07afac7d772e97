package reader

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/gridtrace/asset"
	"github.com/achilleasa/gridtrace/asset/mesh"
	"github.com/achilleasa/gridtrace/log"
	"github.com/achilleasa/gridtrace/types"
)

type wavefrontReader struct {
	logger log.Logger

	// The parsed mesh. Vertex positions are appended as they are parsed.
	mesh *mesh.Mesh

	// Statements that are skipped, with the number of occurrences.
	skipped map[string]int

	// An error stack that provides additional error information when
	// mesh files include other files.
	errStack []string
}

// Create a new wavefront mesh reader.
func newWavefrontReader() *wavefrontReader {
	return &wavefrontReader{
		logger:  log.New("wavefront reader"),
		mesh:    &mesh.Mesh{},
		skipped: make(map[string]int),
	}
}

// Read mesh definition.
func (r *wavefrontReader) Read(ctx context.Context, res *asset.Resource) (*mesh.Mesh, error) {
	r.logger.Noticef(`parsing mesh from "%s"`, res.Path())
	start := time.Now()

	r.mesh.Name = res.Name()
	if err := r.parse(ctx, res); err != nil {
		return nil, err
	}

	for stmt, count := range r.skipped {
		r.logger.Debugf(`skipped %d "%s" statements`, count, stmt)
	}

	if err := r.mesh.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", res.Path(), err)
	}

	r.logger.Noticef(
		"parsed %d vertices and %d triangles in %d ms",
		r.mesh.VertexCount(), r.mesh.TriangleCount(), time.Since(start).Nanoseconds()/1e6,
	)
	return r.mesh, nil
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n"))
	} else {
		errMsg = fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n"))
	}

	return fmt.Errorf("%s", strings.Trim(errMsg, "\n"))
}

// Push a frame to the error stack.
func (r *wavefrontReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Parse wavefront object format.
func (r *wavefrontReader) parse(ctx context.Context, res *asset.Resource) error {
	lineNum := 0

	// Included files use 1-based indices relative to their own vertices so
	// the vertex count at the start of each file is applied as an offset
	// when parsing faces.
	relVertexOffset := r.mesh.VertexCount()

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			if err := r.include(ctx, res, lineNum, lineTokens[1]); err != nil {
				return err
			}
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%v", err)
			}
			r.mesh.AddVertex(v)
		case "f":
			if err := r.parseFace(lineTokens, relVertexOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%v", err)
			}
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.logger.Debugf(`parsing object "%s"`, lineTokens[1])
		default:
			r.skipped[lineTokens[0]]++
		}
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%v", err)
	}

	return nil
}

// Parse an included mesh file.
func (r *wavefrontReader) include(ctx context.Context, parent *asset.Resource, lineNum int, target string) error {
	r.pushFrame(fmt.Sprintf("referenced from %s:%d [call]", parent.Path(), lineNum))

	incRes, err := asset.NewResource(ctx, target, parent)
	if err != nil {
		return r.emitError(parent.Path(), lineNum, "%v", err)
	}
	defer incRes.Close()

	if err = r.parse(ctx, incRes); err != nil {
		return err
	}

	r.popFrame()
	return nil
}

// Parse face definition. Each face definition consists of 3 or 4 vertex
// arguments. Each vertex argument has one of the following formats:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Only the vertex index is used. Indices start from 1 and may be negative to
// indicate an offset off the end of the vertex list. Quad faces are split
// into two triangles.
func (r *wavefrontReader) parseFace(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	var vertices [4]uint32
	expIndices := 0
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], r.mesh.VertexCount(), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %v", arg, err)
		}
		vertices[arg] = uint32(vOffset)
	}

	r.mesh.AddTriangle(vertices[0], vertices[1], vertices[2])
	if len(lineTokens) == 5 {
		r.mesh.AddTriangle(vertices[0], vertices[2], vertices[3])
	}
	return nil
}

// Given an index for a face coord calculate the proper offset into the coord
// list. Wavefront format can also use negative indices to reference elements
// from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int
	switch {
	case index < 0:
		vOffset = coordListLen + int(index)
	case index == 0:
		return -1, fmt.Errorf("index 0 is not valid; indices start from 1")
	default:
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
