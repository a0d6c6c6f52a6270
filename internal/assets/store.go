// Package assets stores uploaded proof images on disk and hands back
// the public URL they are served under.
package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charityrun/runproof/internal/config"
	apperrors "github.com/charityrun/runproof/internal/errors"
	"github.com/charityrun/runproof/internal/utils"
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
	".pdf":  true,
}

// Store writes proof files under a single directory. Filenames combine
// the normalized submitter email with a timestamp so repeated uploads
// never overwrite each other.
type Store struct {
	dir           string
	publicBaseURL string
	logger        utils.Logger
	now           func() time.Time
}

// NewStore creates the directory if needed.
func NewStore(cfg config.AssetsConfig, logger utils.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("assets directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	return &Store{
		dir:           cfg.Dir,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Save streams the upload to disk and returns the public URL. The
// original filename only contributes its extension.
func (s *Store) Save(email, originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", apperrors.Newf(apperrors.CodeValidationFailed,
			"unsupported proof file type %q", ext)
	}

	name := s.fileName(email, ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodePersistenceFailed, "failed to store proof file")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", apperrors.Wrap(err, apperrors.CodePersistenceFailed, "failed to write proof file")
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", apperrors.Wrap(err, apperrors.CodePersistenceFailed, "failed to finalize proof file")
	}

	s.logger.WithField("file", name).Debug("stored proof upload")
	return s.publicURL(name), nil
}

// fileName builds <email>_<timestamp><ext>, retrying with a numeric
// suffix when two uploads land in the same second.
func (s *Store) fileName(email, ext string) string {
	base := unsafeNameChars.ReplaceAllString(utils.NormalizeEmail(email), "_")
	stamp := s.now().UTC().Format("20060102T150405")

	name := fmt.Sprintf("%s_%s%s", base, stamp, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(s.dir, name)); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s_%s_%d%s", base, stamp, i, ext)
	}
}

func (s *Store) publicURL(name string) string {
	if s.publicBaseURL == "" {
		return "/proofs/" + name
	}
	return s.publicBaseURL + "/" + name
}

// Dir returns the storage directory, used to mount the static file
// handler.
func (s *Store) Dir() string {
	return s.dir
}
