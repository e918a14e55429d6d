// Package storage owns the temporary and permanent artifact namespaces.
//
// Uploads are staged under the temp directory, then promoted with a
// single rename into the articles or uploads directory. Nothing outside
// this package builds artifact paths.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/article-publishing-api/internal/config"
	"github.com/article-publishing-api/internal/models"
	"github.com/article-publishing-api/internal/validation"
	"github.com/rs/zerolog"
)

// URL prefixes under which promoted artifacts are served
const (
	ImageURLPrefix    = "/uploads/"
	DocumentURLPrefix = "/files/articles/"
)

// ErrNotStaged is returned when a reference does not name an existing
// staged artifact of the expected kind
var ErrNotStaged = errors.New("artifact is not staged")

type namespace struct {
	tempPrefix  string
	finalPrefix string
	finalDir    string
	rule        validation.UploadRule
}

// Store stages uploads and promotes them into permanent storage
type Store struct {
	tempDir     string
	articlesDir string
	uploadsDir  string
	kinds       map[models.ArtifactKind]namespace
	namer       *Namer
	log         zerolog.Logger
}

// New creates a store over the configured directories. Directories are
// created lazily on first write.
func New(cfg config.StorageConfig, log zerolog.Logger) *Store {
	return &Store{
		tempDir:     cfg.TempDir,
		articlesDir: cfg.ArticlesDir,
		uploadsDir:  cfg.UploadsDir,
		kinds: map[models.ArtifactKind]namespace{
			models.ArtifactDocument: {
				tempPrefix:  DocumentTempPrefix,
				finalPrefix: DocumentFinalPrefix,
				finalDir:    cfg.ArticlesDir,
				rule:        validation.DocumentRule(cfg.MaxDocumentSize),
			},
			models.ArtifactImage: {
				tempPrefix:  ImageTempPrefix,
				finalPrefix: ImageFinalPrefix,
				finalDir:    cfg.UploadsDir,
				rule:        validation.ImageRule(cfg.MaxImageSize),
			},
		},
		namer: NewNamer(),
		log:   log.With().Str("component", "storage").Logger(),
	}
}

// TempDir returns the temporary namespace
func (s *Store) TempDir() string { return s.tempDir }

// ArticlesDir returns the permanent document namespace
func (s *Store) ArticlesDir() string { return s.articlesDir }

// UploadsDir returns the permanent image namespace
func (s *Store) UploadsDir() string { return s.uploadsDir }

func (s *Store) namespace(kind models.ArtifactKind) (namespace, error) {
	ns, ok := s.kinds[kind]
	if !ok {
		return namespace{}, fmt.Errorf("unknown artifact kind %q", kind)
	}
	return ns, nil
}

// Stage validates an upload and writes it under the temp namespace.
// Validation failures are returned as *validation.ValidationError and
// happen before any file is created.
func (s *Store) Stage(kind models.ArtifactKind, up *models.Upload) (*models.TempArtifact, error) {
	ns, err := s.namespace(kind)
	if err != nil {
		return nil, err
	}

	if verr := validation.ValidateUpload(ns.rule, up.FileName, up.MediaType, up.Size); verr != nil {
		return nil, verr
	}

	head := make([]byte, validation.SniffLen)
	n, err := io.ReadFull(up.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	if verr := validation.ValidateContent(ns.rule, head); verr != nil {
		return nil, verr
	}

	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	path := filepath.Join(s.tempDir, s.namer.Name(ns.tempPrefix, up.FileName))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), up.Reader)
	written, err := io.Copy(f, io.LimitReader(body, ns.rule.MaxSize+1))
	if err == nil && written > ns.rule.MaxSize {
		err = &validation.ValidationError{
			Field:   ns.rule.Field,
			Message: "file exceeds the maximum allowed size",
			Value:   written,
		}
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close temp file: %w", closeErr)
	}
	if err != nil {
		s.discard(path)
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	s.log.Debug().
		Str("kind", string(kind)).
		Str("path", path).
		Int64("size_bytes", written).
		Msg("Upload staged")

	return &models.TempArtifact{
		Path:         path,
		OriginalName: filepath.Base(up.FileName),
		Kind:         kind,
		Size:         written,
	}, nil
}

// ResolveTemp maps an untrusted reference to a staged artifact path.
// Only the base name of ref is used, so a reference can never escape
// the temp namespace.
func (s *Store) ResolveTemp(kind models.ArtifactKind, ref string) (string, error) {
	ns, err := s.namespace(kind)
	if err != nil {
		return "", err
	}

	base := filepath.Base(filepath.Clean(strings.ReplaceAll(ref, "\\", "/")))
	if !strings.HasPrefix(base, ns.tempPrefix) || base == ns.tempPrefix {
		return "", ErrNotStaged
	}

	path := filepath.Join(s.tempDir, base)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotStaged
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat temp artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotStaged
	}
	return path, nil
}

// PromotedPath returns where Promote will move tempPath
func (s *Store) PromotedPath(kind models.ArtifactKind, tempPath string) (string, error) {
	ns, err := s.namespace(kind)
	if err != nil {
		return "", err
	}
	name, ok := Rename(tempPath, ns.tempPrefix, ns.finalPrefix)
	if !ok {
		return "", ErrNotStaged
	}
	return filepath.Join(ns.finalDir, name), nil
}

// Promote atomically renames a staged artifact into its permanent
// namespace. If the artifact vanished (for example a concurrent promote
// won) the error wraps ErrNotStaged.
func (s *Store) Promote(kind models.ArtifactKind, tempPath string) (string, error) {
	finalPath, err := s.PromotedPath(kind, tempPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create permanent directory: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", ErrNotStaged, err)
		}
		return "", fmt.Errorf("failed to promote artifact: %w", err)
	}

	s.log.Debug().Str("from", tempPath).Str("to", finalPath).Msg("Artifact promoted")
	return finalPath, nil
}

// Remove deletes an artifact. A missing file is not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// RemoveStaged deletes a staged artifact, reporting ErrNotStaged when
// it is already gone
func (s *Store) RemoveStaged(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotStaged
		}
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path names an existing regular file
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// discard removes a partially written file; failures are only logged
func (s *Store) discard(path string) {
	if err := s.Remove(path); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to discard partial upload")
	}
}

// ImageURL is the public URL of a promoted image
func (s *Store) ImageURL(finalPath string) string {
	return ImageURLPrefix + filepath.Base(finalPath)
}

// ImagePath maps a stored image URL back to its file
func (s *Store) ImagePath(url string) string {
	return filepath.Join(s.uploadsDir, filepath.Base(url))
}

// DocumentURL is the public download URL of a promoted document
func (s *Store) DocumentURL(finalPath string) string {
	return DocumentURLPrefix + filepath.Base(finalPath)
}

// DisplayName strips the storage prefix from a promoted document name
func DisplayName(finalPath string) string {
	return strings.TrimPrefix(filepath.Base(finalPath), DocumentFinalPrefix)
}

// SweepTemp removes staged artifacts last modified before cutoff and
// returns how many were removed
func (s *Store) SweepTemp(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.tempDir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed concurrently
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.tempDir, entry.Name())
		if err := s.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
		s.log.Info().Str("path", path).Time("modified", info.ModTime()).Msg("Expired temp artifact removed")
	}

	return removed, errors.Join(errs...)
}
