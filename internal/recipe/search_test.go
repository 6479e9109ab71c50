package recipe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codx-dev/codx/pkg/schema"
)

func TestSearch(t *testing.T) {
	var gotText, gotSize string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/-/v1/search", r.URL.Path)
		gotText = r.URL.Query().Get("text")
		gotSize = r.URL.Query().Get("size")
		w.Write([]byte(`{
			"objects": [
				{"package": {"name": "eslint-codx-recipe", "version": "1.2.0", "description": "ESLint setup",
				  "publisher": {"username": "jdoe"}, "links": {"npm": "https://npm.im/eslint-codx-recipe"}}},
				{"package": {"name": "prettier-codx-recipe", "version": "0.1.0",
				  "links": {"homepage": "https://example.com"}}}
			],
			"total": 2
		}`))
	}))
	defer srv.Close()

	res, err := NewLoader(WithRegistryURL(srv.URL)).Search(context.Background(), "lint")
	require.NoError(t, err)

	assert.Equal(t, "lint keyword:codx-recipe", gotText)
	assert.Equal(t, "100", gotSize)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Objects, 2)
	assert.Equal(t, "jdoe", res.Objects[0].Package.Publisher.Username)
	assert.Equal(t, "https://npm.im/eslint-codx-recipe", res.Objects[0].Package.Link())
	assert.Equal(t, "https://example.com", res.Objects[1].Package.Link())
}

func TestSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"objects": [], "total": 0}`))
	}))
	defer srv.Close()

	_, err := NewLoader(WithRegistryURL(srv.URL)).Search(context.Background(), "nothing")
	assert.Equal(t, schema.ErrCodeNoPackagesFound, schema.CodeOf(err))
}

func TestSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewLoader(WithRegistryURL(srv.URL)).Search(context.Background(), "lint")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNpmSearch, schema.CodeOf(err))
	assert.Contains(t, err.Error(), "503")
}
