package recipe

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/codx-dev/codx/pkg/schema"
)

const (
	maxMetadataSize = 10 << 20
	maxEntrySize    = 50 << 20
	// packageDir is the directory npm tarballs wrap their files in.
	packageDir = "package"
)

// packageVersion is the part of the registry's version document we use.
type packageVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dist    struct {
		Tarball string `json:"tarball"`
	} `json:"dist"`
}

// download fetches pkg@version into a fresh temporary directory and returns
// the extracted package directory.
func (l *Loader) download(ctx context.Context, pkg, version string) (string, func() error, error) {
	meta, err := l.fetchVersion(ctx, pkg, version)
	if err != nil {
		return "", nil, err
	}
	if meta.Dist.Tarball == "" {
		return "", nil, schema.NewErrorf(schema.ErrCodeFetchFailed, "Failed to get tarball URL for %s@%s", pkg, version)
	}

	tmp, err := os.MkdirTemp(l.tempDir, sanitize(pkg)+"-"+sanitize(version)+"-")
	if err != nil {
		return "", nil, schema.NewError(schema.ErrCodeDownloadFailed, "Failed to create a temporary directory").WithCause(err)
	}
	cleanup := func() error { return os.RemoveAll(tmp) }

	if err := l.fetchTarball(ctx, meta.Dist.Tarball, tmp); err != nil {
		cleanup()
		return "", nil, err
	}

	l.logger.DebugContext(ctx, "recipe package extracted", "package", pkg, "version", meta.Version, "dir", tmp)
	return filepath.Join(tmp, packageDir), cleanup, nil
}

func (l *Loader) fetchVersion(ctx context.Context, pkg, version string) (*packageVersion, error) {
	u := l.registryURL + "/" + url.PathEscape(pkg) + "/" + url.PathEscape(version)

	resp, err := l.get(ctx, u)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeFetchFailed, "Failed to fetch %s", u).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, schema.NewErrorf(schema.ErrCodeFetchFailed, "Failed to fetch %s: %s", u, resp.Status).
			WithDetails(map[string]any{"status": resp.StatusCode, "package": pkg, "version": version})
	}

	var meta packageVersion
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataSize)).Decode(&meta); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeFetchFailed, "Failed to fetch %s", u).WithCause(err)
	}
	return &meta, nil
}

func (l *Loader) fetchTarball(ctx context.Context, tarballURL, dest string) error {
	resp, err := l.get(ctx, tarballURL)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeDownloadFailed, "Failed to download %s", tarballURL).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return schema.NewErrorf(schema.ErrCodeDownloadFailed, "HTTP Error: %s", resp.Status).
			WithDetails(map[string]any{"status": resp.StatusCode, "url": tarballURL})
	}

	if err := extractTarball(resp.Body, dest); err != nil {
		return schema.NewError(schema.ErrCodeTarballExtraction, "Failed to extract tarball").WithCause(err)
	}
	return nil
}

func (l *Loader) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return l.client.Do(req)
}

// extractTarball unpacks a gzipped tar stream into dest. Entries escaping
// dest are rejected; only directories and regular files are written.
func extractTarball(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr); err != nil {
				return err
			}
		}
	}
}

func writeEntry(r io.Reader, target string, hdr *tar.Header) error {
	if hdr.Size > maxEntrySize {
		return fmt.Errorf("%s: entry too large (%d bytes)", hdr.Name, hdr.Size)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	mode := os.FileMode(hdr.Mode).Perm() | 0o600
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, io.LimitReader(r, maxEntrySize)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func entryPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes the extraction directory", name)
	}
	return target, nil
}

func sanitize(s string) string {
	return strings.NewReplacer("/", "_", "@", "", "\\", "_").Replace(s)
}
