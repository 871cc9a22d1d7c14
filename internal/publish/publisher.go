// Package publish hands generated documents to a hosting target.
//
// The compiler never publishes by itself. A Publisher receives the final
// HTML together with its build metadata and reports where the page now lives.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/conneroisu/pagecraft/internal/build"
	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/conneroisu/pagecraft/internal/validation"
	"github.com/google/uuid"
)

const (
	// IndexFile is the document name written for every page.
	IndexFile = "index.html"
	// ManifestFile records the published revision next to the document.
	ManifestFile = "manifest.json"
)

// Publisher stores a generated page and returns its public location.
type Publisher interface {
	Publish(ctx context.Context, ownerID, pageID, html string, meta build.Metadata) (*Result, error)
}

// Result describes one successful publish.
type Result struct {
	URL         string
	Revision    string
	Path        string
	PublishedAt time.Time
}

// Manifest is the JSON document stored next to a published page.
type Manifest struct {
	OwnerID          string    `json:"ownerId"`
	PageID           string    `json:"pageId"`
	Revision         string    `json:"revision"`
	PreviousRevision string    `json:"previousRevision,omitempty"`
	PublishedAt      time.Time `json:"publishedAt"`
	Size             int       `json:"size"`
	Checksum         string    `json:"checksum"`
	BuildID          string    `json:"buildId"`
	Version          string    `json:"version"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// DirectoryPublisher writes pages under <root>/<owner>/<page>/.
type DirectoryPublisher struct {
	root        string
	baseURL     string
	now         func() time.Time
	newRevision func() string
	logger      logging.Logger

	mu sync.Mutex
}

// Option configures a DirectoryPublisher.
type Option func(*DirectoryPublisher)

// WithClock sets the publish time source.
func WithClock(now func() time.Time) Option {
	return func(p *DirectoryPublisher) { p.now = now }
}

// WithRevisionGenerator sets the revision id source.
func WithRevisionGenerator(newRevision func() string) Option {
	return func(p *DirectoryPublisher) { p.newRevision = newRevision }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *DirectoryPublisher) { p.logger = logger }
}

// NewDirectoryPublisher returns a publisher rooted at root. When baseURL is
// empty, result URLs are file:// URLs of the written document.
func NewDirectoryPublisher(root, baseURL string, opts ...Option) (*DirectoryPublisher, error) {
	if err := validation.ValidatePath(root); err != nil {
		return nil, pcerrors.WrapConfig(err, pcerrors.ErrCodeInvalidPath, "invalid publish directory")
	}
	if baseURL != "" {
		if err := validation.ValidateURL(baseURL); err != nil {
			return nil, pcerrors.WrapConfig(err, pcerrors.ErrCodeConfigInvalid, "invalid publish base URL")
		}
	}

	p := &DirectoryPublisher{
		root:        root,
		baseURL:     baseURL,
		now:         time.Now,
		newRevision: uuid.NewString,
		logger:      logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("publisher")

	return p, nil
}

// Publish writes the document and its manifest. The document is replaced
// atomically so readers never observe a partial page.
func (p *DirectoryPublisher) Publish(ctx context.Context, ownerID, pageID, html string, meta build.Metadata) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.ValidateIdentifier("owner", ownerID); err != nil {
		return nil, pcerrors.WrapValidation(err, pcerrors.ErrCodePublishFailed, "invalid owner id")
	}
	if err := validation.ValidateIdentifier("page", pageID); err != nil {
		return nil, pcerrors.WrapValidation(err, pcerrors.ErrCodePublishFailed, "invalid page id")
	}
	if html == "" {
		return nil, pcerrors.NewValidationError(pcerrors.ErrCodePublishFailed, "refusing to publish an empty document")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	dir := filepath.Join(p.root, ownerID, pageID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, pcerrors.WrapIO(err, pcerrors.ErrCodePublishFailed, "failed to create page directory").WithFile(dir)
	}

	manifest := Manifest{
		OwnerID:     ownerID,
		PageID:      pageID,
		Revision:    p.newRevision(),
		PublishedAt: p.now().UTC(),
		Size:        len(html),
		Checksum:    meta.Checksum,
		BuildID:     meta.BuildID,
		Version:     meta.Version,
		GeneratedAt: meta.GeneratedAt,
	}
	if previous, err := ReadManifest(dir); err == nil {
		manifest.PreviousRevision = previous.Revision
	}

	indexPath := filepath.Join(dir, IndexFile)
	if err := writeFileAtomic(indexPath, []byte(html)); err != nil {
		return nil, pcerrors.WrapIO(err, pcerrors.ErrCodePublishFailed, "failed to write page").WithFile(indexPath)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, pcerrors.NewInternalError(pcerrors.ErrCodePublishFailed, "failed to encode manifest", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ManifestFile), data); err != nil {
		return nil, pcerrors.NewIOError(pcerrors.ErrCodePublishFailed, "failed to write manifest", err).WithFile(dir)
	}

	location, err := p.location(ownerID, pageID, indexPath)
	if err != nil {
		return nil, pcerrors.NewInternalError(pcerrors.ErrCodePublishFailed, "failed to build page URL", err)
	}

	p.logger.Info(ctx, "Page published",
		"owner_id", ownerID,
		"page_id", pageID,
		"revision", manifest.Revision,
		"size", manifest.Size)

	return &Result{
		URL:         location,
		Revision:    manifest.Revision,
		Path:        indexPath,
		PublishedAt: manifest.PublishedAt,
	}, nil
}

func (p *DirectoryPublisher) location(ownerID, pageID, indexPath string) (string, error) {
	if p.baseURL != "" {
		u, err := url.JoinPath(p.baseURL, ownerID, pageID)
		if err != nil {
			return "", err
		}
		return u + "/", nil
	}

	abs, err := filepath.Abs(indexPath)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// ReadManifest loads the manifest of a published page directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".publish-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
