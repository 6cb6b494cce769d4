package volumeio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/tiff"

	"neurontrace/internal/models"
)

// sliceExtensions lists the image formats accepted in a slice directory
var sliceExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// ReadSlices loads a directory of 2D images as a volume, one image per z
// plane. Files are ordered by the number embedded in their name. Each voxel
// holds the grey level of its pixel scaled to [0, 1].
func ReadSlices(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sliceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image slices found in %s", dir)
	}

	// Sort by slice number so that z follows acquisition order
	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})

	var v *models.Volume
	for z, name := range files {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", name, err)
		}

		b := img.Bounds()
		if v == nil {
			v = models.NewVolume(b.Dx(), b.Dy(), len(files))
		} else if b.Dx() != v.Width || b.Dy() != v.Height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d", name, b.Dx(), b.Dy(), v.Width, v.Height)
		}

		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				v.Set(x, y, z, float64(g.Y)/65535.0)
			}
		}
	}
	return v, nil
}

// Threshold returns a binary mask with 1 where v exceeds level.
func Threshold(v *models.Volume, level float64) *models.Volume {
	mask := models.NewVolume(v.Width, v.Height, v.Depth)
	for i, value := range v.Data {
		if value > level {
			mask.Data[i] = 1
		}
	}
	return mask
}

// extractNumber returns the digits of a file name as an integer, or 0
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}
