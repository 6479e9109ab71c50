package recipe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/codx-dev/codx/pkg/schema"
)

// SearchKeyword is the npm keyword recipe packages are tagged with.
const SearchKeyword = "codx-recipe"

const searchPageSize = 100

// SearchResult is the npm registry search response.
type SearchResult struct {
	Objects []SearchObject `json:"objects"`
	Total   int            `json:"total"`
}

// SearchObject wraps one search hit.
type SearchObject struct {
	Package PackageInfo `json:"package"`
}

// PackageInfo describes a published recipe package.
type PackageInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
	Publisher   struct {
		Username string `json:"username,omitempty"`
	} `json:"publisher"`
	Links struct {
		Npm      string `json:"npm,omitempty"`
		Homepage string `json:"homepage,omitempty"`
	} `json:"links"`
}

// Link returns the package's npm page, falling back to its homepage.
func (p PackageInfo) Link() string {
	if p.Links.Npm != "" {
		return p.Links.Npm
	}
	return p.Links.Homepage
}

// Search finds recipe packages matching term.
func (l *Loader) Search(ctx context.Context, term string) (*SearchResult, error) {
	q := url.Values{}
	q.Set("text", term+" keyword:"+SearchKeyword)
	q.Set("size", strconv.Itoa(searchPageSize))
	u := l.registryURL + "/-/v1/search?" + q.Encode()

	resp, err := l.get(ctx, u)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeNpmSearch, "Failed to search npm packages").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, schema.NewErrorf(schema.ErrCodeNpmSearch, "Failed to search npm packages: %s", resp.Status).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	var result SearchResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataSize)).Decode(&result); err != nil {
		return nil, schema.NewError(schema.ErrCodeNpmSearch, "Failed to search npm packages").WithCause(err)
	}
	if len(result.Objects) == 0 {
		return nil, schema.NewErrorf(schema.ErrCodeNoPackagesFound, "No packages found matching %q", term).
			WithDetails(map[string]any{"term": term})
	}
	return &result, nil
}
