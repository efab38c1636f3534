package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/stmtcheck/internal/extract"
)

// ProcessedDir is the subdirectory of the input dir that archived PDFs move to.
const ProcessedDir = "processed"

// Document describes a statement PDF in the input directory.
type Document struct {
	ID   string
	Name string
	Path string
	Size int64
}

// Scan returns the PDF files directly inside dir, in name order.
// A missing directory yields no documents. Files whose names differ only in
// the extension's case ("jan.pdf", "jan.PDF") would share an ID, so those
// keep their full file name as the ID.
func Scan(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading input dir: %w", err)
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		path := filepath.Join(dir, e.Name())
		docs = append(docs, Document{
			ID:   extract.StatementID(path),
			Name: e.Name(),
			Path: path,
			Size: info.Size(),
		})
	}

	seen := make(map[string]int, len(docs))
	for _, d := range docs {
		seen[d.ID]++
	}
	for i := range docs {
		if seen[docs[i].ID] > 1 {
			docs[i].ID = docs[i].Name
		}
	}
	return docs, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	dstDir := filepath.Join(dir, ProcessedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(dir, fileName)
	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
