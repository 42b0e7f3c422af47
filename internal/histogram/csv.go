package histogram

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	pkgerrors "bovw/pkg/errors"
)

const csvFormatLine = "# Format: number of bins followed by bin frequencies"

// WriteCSV writes the three-line text form:
//
//	# <path>
//	# Format: number of bins followed by bin frequencies
//	<n>, v0, v1, ...
func (h *Histogram) WriteCSV(w io.Writer) error {
	_, err := fmt.Fprintf(w, "# %s\n%s\n%d, %s\n", h.Path, csvFormatLine, h.Len(), h.String())
	return err
}

// ReadCSV parses the form written by WriteCSV. A bin count of 0 yields an
// empty histogram.
func ReadCSV(r io.Reader) (*Histogram, error) {
	br := bufio.NewReader(r)
	lines := make([]string, 0, 3)
	for len(lines) < 3 {
		line, err := br.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("histogram csv has %d lines: %w", len(lines), pkgerrors.ErrMalformedFile)
			}
			return nil, err
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}

	h := &Histogram{Path: strings.TrimPrefix(lines[0], "# ")}
	if lines[0] == "#" {
		h.Path = ""
	}

	fields := strings.Split(lines[2], ",")
	n, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("histogram bin count %q: %w", fields[0], pkgerrors.ErrMalformedFile)
	}
	if n == 0 {
		return h, nil
	}
	h.Bins = make([]float32, 0, n)
	for _, f := range fields[1:] {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("histogram bin %q: %w", f, pkgerrors.ErrMalformedFile)
		}
		h.Bins = append(h.Bins, float32(v))
	}
	if len(h.Bins) != n {
		return nil, fmt.Errorf("histogram declares %d bins, has %d: %w", n, len(h.Bins), pkgerrors.ErrMalformedFile)
	}
	return h, nil
}

// SaveCSV writes h to path.
func (h *Histogram) SaveCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return pkgerrors.IOError("create", path, err)
	}
	w := bufio.NewWriter(file)
	if err := h.WriteCSV(w); err != nil {
		file.Close()
		return pkgerrors.IOError("write", path, err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return pkgerrors.IOError("write", path, err)
	}
	if err := file.Close(); err != nil {
		return pkgerrors.IOError("close", path, err)
	}
	return nil
}

// LoadCSV reads a histogram saved with SaveCSV.
func LoadCSV(path string) (*Histogram, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.IOError("open", path, err)
	}
	defer file.Close()
	h, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}
