package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/docstruct/constants"
)

// Source yields the ordered document set for a session. Ordering is the
// ingestion order and drives row order in every downstream table.
type Source interface {
	ListDocuments(ctx context.Context, sessionID string) ([]Document, error)
}

// FSSource reads a session's documents from a directory, one session per
// subdirectory named by session id.
type FSSource struct {
	root   string
	logger *slog.Logger
}

func NewFSSource(root string, logger *slog.Logger) *FSSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSSource{root: root, logger: logger}
}

// ListDocuments walks root/sessionID, filters by allowed extensions, skips
// hidden files, and loads each file. Files are returned in lexical path
// order so repeated runs over the same directory see the same ordering.
func (s *FSSource) ListDocuments(ctx context.Context, sessionID string) ([]Document, error) {
	dir := filepath.Join(s.root, sessionID)
	if strings.TrimSpace(sessionID) == "" {
		dir = s.root
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if AllowedName(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	var docs []Document
	for _, p := range paths {
		doc, err := s.load(p)
		if err != nil {
			s.logger.Warn("document load failed", "path", p, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, errors.New("no readable documents in session directory")
	}
	s.logger.Info("session documents listed", "session_id", sessionID, "count", len(docs))
	return docs, nil
}

func (s *FSSource) load(path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	doc := New(filepath.Base(path), content)
	if doc.Kind == constants.PDF {
		// validate and count pages up front so a broken PDF fails at ingest,
		// not in the middle of extraction
		n, err := api.PageCount(bytes.NewReader(content), nil)
		if err != nil {
			return Document{}, fmt.Errorf("pdf page count: %w", err)
		}
		doc.Pages = n
	}
	return doc, nil
}
