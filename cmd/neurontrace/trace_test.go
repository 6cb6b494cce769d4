package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"neurontrace/internal/models"
	"neurontrace/pkg/config"
	"neurontrace/pkg/swc"
	"neurontrace/pkg/volumeio"
)

// writeTube stores a straight tube along x and its distance map
func writeTube(t *testing.T, dir string) (string, string) {
	t.Helper()
	soma := r3.Vec{X: 3, Y: 3, Z: 3}
	tmap := models.NewVolume(24, 7, 7)
	mask := models.NewVolume(24, 7, 7)
	for x := 0; x < 24; x++ {
		for y := 0; y < 7; y++ {
			for z := 0; z < 7; z++ {
				tmap.Set(x, y, z, r3.Norm(r3.Sub(models.VoxelCenter(x, y, z), soma)))
				if y >= 2 && y <= 4 && z >= 2 && z <= 4 {
					mask.Set(x, y, z, 1)
				}
			}
		}
	}

	tmapFile := filepath.Join(dir, "tmap.ntv")
	maskFile := filepath.Join(dir, "mask.ntv")
	require.NoError(t, volumeio.WriteFile(tmapFile, tmap))
	require.NoError(t, volumeio.WriteFile(maskFile, mask))
	return tmapFile, maskFile
}

func TestTraceCommand(t *testing.T) {
	dir := t.TempDir()
	tmapFile, maskFile := writeTube(t, dir)
	out := filepath.Join(dir, "out", "tube.swc")
	render := filepath.Join(dir, "tube.png")

	rootCmd.SetArgs([]string{"trace",
		"--config", filepath.Join(dir, "missing.yaml"),
		"--tmap", tmapFile,
		"--mask", maskFile,
		"--soma", "3,3,3",
		"--soma-radius", "1.5",
		"--out", out,
		"--render", render,
	})
	require.NoError(t, rootCmd.Execute())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	records, err := swc.Read(f)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, swc.TypeSoma, records[0].Type)
	assert.Equal(t, r3.Vec{X: 3, Y: 3, Z: 3}, records[0].Pos())

	_, err = os.Stat(render)
	assert.NoError(t, err, "projection should be saved")
}

func TestTraceCommandBadSoma(t *testing.T) {
	dir := t.TempDir()
	tmapFile, maskFile := writeTube(t, dir)

	rootCmd.SetArgs([]string{"trace",
		"--config", filepath.Join(dir, "missing.yaml"),
		"--tmap", tmapFile,
		"--mask", maskFile,
		"--soma", "3,3",
		"--soma-radius", "1.5",
		"--out", filepath.Join(dir, "out.swc"),
	})
	assert.Error(t, rootCmd.Execute())
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neurontrace.yaml")

	rootCmd.SetArgs([]string{"config", "init", path})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTracing(), cfg.Tracing)

	// An existing file is never overwritten
	rootCmd.SetArgs([]string{"config", "init", path})
	assert.Error(t, rootCmd.Execute())
}
