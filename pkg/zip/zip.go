// Package zip bundles in-memory files into a zip archive.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes assets to w as a zip archive. Images are already
// compressed, so entries are stored rather than deflated.
func ArchiveAssets(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	for _, asset := range assets {
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:   asset.Filename,
			Method: zip.Store,
		})
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", asset.Filename, err)
		}
		if _, err := entry.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip: close: %w", err)
	}
	return nil
}
