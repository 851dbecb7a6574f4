// Package repository turns model URLs into local artifact paths. It reads
// local paths and file:// URLs in place, downloads http(s):// and gs://
// objects into a cache directory, and expands zoo:// names through a YAML
// catalog.
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
)

// Progress receives download progress. total is -1 when unknown.
type Progress func(current, total int64)

// Request describes what to resolve.
type Request struct {
	// URLs are tried in order; the first that resolves wins.
	URLs []string
	// Name selects the model inside a directory artifact and the catalog
	// entry of a bare "zoo://" URL.
	Name string
	// Version is matched against catalog entries. Local paths carry no
	// version, so it is only recorded on their Artifact.
	Version string
	// Progress, when set, is called while downloading.
	Progress Progress
}

// Artifact is a resolved model location on the local file system.
type Artifact struct {
	// Path is a model file or a directory holding one.
	Path string
	// Name is the model name to look for inside Path.
	Name    string
	Version string
	// Source is the URL that resolved.
	Source string
	// Engine is the engine a catalog entry asks for, if any.
	Engine     string
	Properties map[string]string
}

// Resolver resolves URLs into Artifacts.
type Resolver struct {
	cacheDir string
	client   *http.Client
	catalog  *Catalog

	gcsMu  sync.Mutex
	gcs    *storage.Client
	gcsNew func(ctx context.Context) (*storage.Client, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCacheDir sets where downloads are stored.
func WithCacheDir(dir string) Option {
	return func(r *Resolver) {
		r.cacheDir = dir
	}
}

// WithHTTPClient sets the client used for http(s) downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		r.client = c
	}
}

// WithCatalog sets the catalog behind zoo:// URLs.
func WithCatalog(c *Catalog) Option {
	return func(r *Resolver) {
		r.catalog = c
	}
}

// WithGCSClient sets the client used for gs:// objects. Without it a client
// with default credentials is created on first use.
func WithGCSClient(c *storage.Client) Option {
	return func(r *Resolver) {
		r.gcs = c
	}
}

// DefaultCacheDir is $DJL_CACHE_DIR, else the user cache dir plus "djl".
func DefaultCacheDir() string {
	if dir := os.Getenv("DJL_CACHE_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "djl")
	}
	return filepath.Join(os.TempDir(), "djl")
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		cacheDir: DefaultCacheDir(),
		client:   http.DefaultClient,
		gcsNew: func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the configured catalog, which may be nil.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Close releases the GCS client if one was created.
func (r *Resolver) Close() error {
	r.gcsMu.Lock()
	defer r.gcsMu.Unlock()
	if r.gcs == nil {
		return nil
	}
	err := r.gcs.Close()
	r.gcs = nil
	return err
}

// Resolve tries every URL of req in order. When none resolves the result
// wraps ErrModelNotFound, or ErrIOFailure if any URL failed for another
// reason.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Artifact, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("%w: no model urls", ErrModelNotFound)
	}

	var errs []error
	for _, raw := range req.URLs {
		a, err := r.resolveOne(ctx, raw, req)
		if err == nil {
			log.Debug().
				Str("component", "repository").
				Str("url", raw).
				Str("path", a.Path).
				Msg("artifact resolved")
			return a, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}

	joined := errors.Join(errs...)
	if errors.Is(joined, ErrIOFailure) {
		return nil, joined
	}
	if errors.Is(joined, ErrModelNotFound) {
		return nil, joined
	}
	return nil, fmt.Errorf("%w: %w", ErrModelNotFound, joined)
}

func (r *Resolver) resolveOne(ctx context.Context, raw string, req Request) (*Artifact, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare paths, including Windows drive letters.
		return local(raw, raw, req)
	}

	switch u.Scheme {
	case "file":
		p := u.Path
		if u.Host != "" && u.Host != "localhost" {
			p = "//" + u.Host + p
		}
		return local(filepath.FromSlash(p), raw, req)
	case "http", "https":
		return r.resolveHTTP(ctx, u, req)
	case "gs":
		return r.resolveGCS(ctx, u, req)
	case "zoo":
		return r.resolveZoo(ctx, u, req)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q in %s", ErrModelNotFound, u.Scheme, raw)
	}
}

func local(p, source string, req Request) (*Artifact, error) {
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	name := req.Name
	if name == "" {
		name = artifactName(p, info.IsDir())
	} else if info.IsDir() {
		ok, err := hasModelFile(p, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: no %q in %s", ErrModelNotFound, name, p)
		}
	}
	return &Artifact{Path: p, Name: name, Version: req.Version, Source: source}, nil
}

// hasModelFile reports whether dir holds a file named name.<ext>.
func hasModelFile(dir, name string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), name+".") {
			return true, nil
		}
	}
	return false, nil
}

// artifactName is the file name without extension, or the directory name.
func artifactName(p string, dir bool) string {
	base := filepath.Base(p)
	if dir {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// cachePath is a stable download location for a URL.
func (r *Resolver) cachePath(source, file string) string {
	sum := sha256.Sum256([]byte(source))
	return filepath.Join(r.cacheDir, hex.EncodeToString(sum[:8]), file)
}

func (r *Resolver) resolveHTTP(ctx context.Context, u *url.URL, req Request) (*Artifact, error) {
	file := path.Base(u.Path)
	if file == "." || file == "/" {
		return nil, fmt.Errorf("%w: %s names no file", ErrModelNotFound, u)
	}
	dest := r.cachePath(u.String(), file)
	if _, err := os.Stat(dest); err != nil {
		if err := r.downloadHTTP(ctx, u.String(), dest, req.Progress); err != nil {
			return nil, err
		}
	}
	return cached(dest, u.String(), req), nil
}

func (r *Resolver) resolveGCS(ctx context.Context, u *url.URL, req Request) (*Artifact, error) {
	bucket, object := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("%w: %s needs gs://bucket/object", ErrModelNotFound, u)
	}
	dest := r.cachePath(u.String(), path.Base(object))
	if _, err := os.Stat(dest); err != nil {
		if err := r.downloadGCS(ctx, bucket, object, dest, req.Progress); err != nil {
			return nil, err
		}
	}
	return cached(dest, u.String(), req), nil
}

func cached(dest, source string, req Request) *Artifact {
	name := req.Name
	if name == "" {
		name = artifactName(dest, false)
	}
	return &Artifact{Path: dest, Name: name, Version: req.Version, Source: source}
}

func (r *Resolver) resolveZoo(ctx context.Context, u *url.URL, req Request) (*Artifact, error) {
	name, version := u.Host, strings.Trim(u.Path, "/")
	if name == "" {
		name = req.Name
	}
	if version == "" {
		version = req.Version
	}
	if name == "" {
		return nil, fmt.Errorf("%w: %s names no model", ErrModelNotFound, u)
	}
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: no catalog configured for %s", ErrModelNotFound, u)
	}

	entry, err := r.catalog.Lookup(name, version)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(entry.URL, "zoo:") {
		return nil, fmt.Errorf("%w: catalog entry %s points at another zoo url", ErrModelNotFound, name)
	}

	inner := req
	inner.Name = entry.Artifact
	if inner.Name == "" {
		inner.Name = entry.Name
	}
	inner.Version = entry.Version
	a, err := r.resolveOne(ctx, entry.URL, inner)
	if err != nil {
		return nil, err
	}
	a.Source = u.String()
	a.Engine = entry.Engine
	a.Properties = entry.Properties
	return a, nil
}
