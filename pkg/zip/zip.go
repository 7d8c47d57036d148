// Package zip builds flat archives of processed lot images, used by the
// batch processor to export a run's output in one file.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Entry is one image to archive; Name becomes the path inside the archive.
type Entry struct {
	Name string
	Data []byte
}

// Archive writes all entries into an in-memory zip archive.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize: %w", err)
	}
	return buf.Bytes(), nil
}
