package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
)

// progressWriter reports the running byte count after every write.
type progressWriter struct {
	current, total int64
	fn             Progress
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.current += int64(len(b))
	if p.fn != nil {
		p.fn(p.current, p.total)
	}
	return len(b), nil
}

func (r *Resolver) downloadHTTP(ctx context.Context, source, dest string, progress Progress) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrIOFailure, err)
	}

	startedAt := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, source)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status downloading %s: %s", ErrIOFailure, source, resp.Status)
	}

	n, err := writeToFile(resp.Body, dest, resp.ContentLength, progress)
	if err != nil {
		return err
	}
	log.Debug().
		Str("component", "repository").
		Str("url", source).
		Int64("bytes", n).
		Dur("duration", time.Since(startedAt)).
		Msg("downloaded artifact")
	return nil
}

func (r *Resolver) gcsClient(ctx context.Context) (*storage.Client, error) {
	r.gcsMu.Lock()
	defer r.gcsMu.Unlock()
	if r.gcs == nil {
		c, err := r.gcsNew(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: creating GCS storage client: %w", ErrIOFailure, err)
		}
		r.gcs = c
	}
	return r.gcs, nil
}

func (r *Resolver) downloadGCS(ctx context.Context, bucket, object, dest string, progress Progress) error {
	client, err := r.gcsClient(ctx)
	if err != nil {
		return err
	}
	gcsURL := "gs://" + bucket + "/" + object

	startedAt := time.Now()
	rd, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, gcsURL)
	}
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrIOFailure, gcsURL, err)
	}
	defer rd.Close()

	n, err := writeToFile(rd, dest, rd.Attrs.Size, progress)
	if err != nil {
		return err
	}
	log.Debug().
		Str("component", "repository").
		Str("url", gcsURL).
		Int64("bytes", n).
		Dur("duration", time.Since(startedAt)).
		Msg("downloaded artifact")
	return nil
}

// writeToFile copies src into a temporary file next to dest and renames it
// into place, so dest is either absent or complete.
func writeToFile(src io.Reader, dest string, total int64, progress Progress) (int64, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("%w: creating cache dir: %w", ErrIOFailure, err)
	}
	tempFile, err := os.CreateTemp(dir, "download")
	if err != nil {
		return 0, fmt.Errorf("%w: creating temp file: %w", ErrIOFailure, err)
	}

	shouldDeleteTempFile := true
	defer func() {
		if shouldDeleteTempFile {
			if err := os.Remove(tempFile.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", tempFile.Name()).Msg("removing temp file")
			}
		}
	}()

	shouldCloseTempFile := true
	defer func() {
		if shouldCloseTempFile {
			_ = tempFile.Close()
		}
	}()

	pw := &progressWriter{total: total, fn: progress}
	n, err := io.Copy(io.MultiWriter(tempFile, pw), src)
	if err != nil {
		return n, fmt.Errorf("%w: downloading: %w", ErrIOFailure, err)
	}
	if total >= 0 && n != total {
		return n, fmt.Errorf("%w: got %d of %d bytes", ErrIOFailure, n, total)
	}

	if err := tempFile.Close(); err != nil {
		return n, fmt.Errorf("%w: closing temp file: %w", ErrIOFailure, err)
	}
	shouldCloseTempFile = false

	if err := os.Rename(tempFile.Name(), dest); err != nil {
		return n, fmt.Errorf("%w: renaming temp file: %w", ErrIOFailure, err)
	}
	shouldDeleteTempFile = false
	return n, nil
}
