package swc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Write emits records in SWC format, one space-separated row per node,
// preceded by optional comment lines.
func Write(w io.Writer, records []Record, comments ...string) error {
	bw := bufio.NewWriter(w)
	for _, c := range comments {
		if _, err := fmt.Fprintf(bw, "# %s\n", c); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(bw, "# id type x y z radius parent"); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(bw, "%d %d %.3f %.3f %.3f %.3f %d\n",
			r.ID, r.Type, r.X, r.Y, r.Z, r.Radius, r.Parent); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes records to path, creating parent directories as needed.
func WriteFile(path string, records []Record, comments ...string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating swc file: %w", err)
	}
	if err := Write(f, records, comments...); err != nil {
		f.Close()
		return fmt.Errorf("error writing swc file: %w", err)
	}
	return f.Close()
}

// Read parses SWC rows, skipping blank and comment lines.
func Read(r io.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 7 {
			return nil, fmt.Errorf("swc line %d: expected 7 columns, got %d", line, len(fields))
		}

		var rec Record
		var err error
		ints := []*int{&rec.ID, &rec.Type, &rec.Parent}
		for i, col := range []int{0, 1, 6} {
			if *ints[i], err = strconv.Atoi(fields[col]); err != nil {
				return nil, fmt.Errorf("swc line %d: %w", line, err)
			}
		}
		floats := []*float64{&rec.X, &rec.Y, &rec.Z, &rec.Radius}
		for i, col := range []int{2, 3, 4, 5} {
			if *floats[i], err = strconv.ParseFloat(fields[col], 64); err != nil {
				return nil, fmt.Errorf("swc line %d: %w", line, err)
			}
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
