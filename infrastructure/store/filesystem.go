// Package store provides document storage backends for the verification
// pipeline.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/veridoc/veridoc/internal/domain"
	"github.com/veridoc/veridoc/internal/ports"
)

// FilesystemStore keeps documents and results as files under a root
// directory. A document with ID "thesis-42" is read from
// <root>/thesis-42.md (or .txt); its result is written next to it as
// thesis-42.result.json.
type FilesystemStore struct {
	root string
}

// documentExtensions lists the file extensions probed for a document ID,
// in order of preference.
var documentExtensions = []string{".md", ".txt", ""}

// NewFilesystemStore validates that root exists and is a directory.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("store root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store root %s is not a directory", root)
	}
	return &FilesystemStore{root: root}, nil
}

// GetDocumentText returns the content of the document file for id.
func (s *FilesystemStore) GetDocumentText(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateID(id); err != nil {
		return "", err
	}
	for _, ext := range documentExtensions {
		data, err := os.ReadFile(filepath.Join(s.root, id+ext))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read document %s: %w", id, err)
		}
	}
	return "", fmt.Errorf("document %s: %w", id, os.ErrNotExist)
}

// SaveResult writes the result as pretty-printed JSON next to the
// document, replacing any previous result atomically.
func (s *FilesystemStore) SaveResult(ctx context.Context, id string, result *domain.AggregateResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result for %s: %w", id, err)
	}
	target := filepath.Join(s.root, id+".result.json")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write result for %s: %w", id, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("write result for %s: %w", id, err)
	}
	return nil
}

// validateID rejects IDs that would escape the store root.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("document id is empty")
	}
	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("document id %q contains path separators", id)
	}
	return nil
}

var _ ports.DocumentStore = (*FilesystemStore)(nil)
