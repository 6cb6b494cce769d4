// Package volumeio reads and writes the volumes consumed by the tracer: a
// raw binary format for float maps and image slice stacks for masks.
package volumeio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"neurontrace/internal/models"
)

// Magic prefixes every raw volume file.
const Magic = "NTVOL1"

// maxExtent bounds each axis so a corrupt header cannot trigger a huge allocation
const maxExtent = 1 << 16

// maxVoxels bounds the whole grid, 2 GiB of float64 samples
const maxVoxels = 1 << 28

// ErrBadHeader is returned when a raw volume header is malformed.
var ErrBadHeader = errors.New("volumeio: bad header")

// Write encodes v as Magic, three little-endian uint32 extents (width,
// height, depth) and the voxels as little-endian float64 in x-major order.
func Write(w io.Writer, v *models.Volume) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Magic); err != nil {
		return err
	}
	extents := [3]uint32{uint32(v.Width), uint32(v.Height), uint32(v.Depth)}
	if err := binary.Write(bw, binary.LittleEndian, extents); err != nil {
		return err
	}

	var buf [8]byte
	for _, value := range v.Data {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(value))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Read decodes a volume written by Write.
func Read(r io.Reader) (*models.Volume, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("%w: unknown magic %q", ErrBadHeader, magic)
	}

	var extents [3]uint32
	if err := binary.Read(br, binary.LittleEndian, &extents); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	for _, n := range extents {
		if n == 0 || n > maxExtent {
			return nil, fmt.Errorf("%w: extents %v", ErrBadHeader, extents)
		}
	}
	if uint64(extents[0])*uint64(extents[1])*uint64(extents[2]) > maxVoxels {
		return nil, fmt.Errorf("%w: %v exceeds %d voxels", ErrBadHeader, extents, maxVoxels)
	}

	v := models.NewVolume(int(extents[0]), int(extents[1]), int(extents[2]))
	var buf [8]byte
	for i := range v.Data {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("voxel %d of %d: %w", i, len(v.Data), err)
		}
		v.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
	}
	return v, nil
}

// WriteFile writes v to path, creating parent directories as needed.
func WriteFile(path string, v *models.Volume) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, v); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile reads a raw volume from path.
func ReadFile(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return v, nil
}
