package scaffold

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSite(t *testing.T) {
	fs := afero.NewMemMapFs()
	written, err := Render(fs, SiteRoot, "myblog", SiteData{Title: "myblog", Author: "Jane", URL: "https://blog.example.com"})
	require.NoError(t, err)
	assert.Contains(t, written, "myblog/splotch.yaml")
	assert.Contains(t, written, "myblog/.env.example")
	assert.Contains(t, written, "myblog/.gitignore")
	assert.Contains(t, written, "myblog/content/blog/hello-world/index.md")

	cfg, err := afero.ReadFile(fs, "myblog/splotch.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(cfg), `author: "Jane"`)
	assert.Contains(t, string(cfg), `url: "https://blog.example.com"`)
}

func TestRenderPost(t *testing.T) {
	fs := afero.NewMemMapFs()
	written, err := Render(fs, PostRoot, "content/blog/a-title", PostData{Title: `A "quoted" title`, Date: "2024-01-02T03:04:05Z"})
	require.NoError(t, err)
	require.Equal(t, []string{"content/blog/a-title/index.md"}, written)

	b, err := afero.ReadFile(fs, written[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `title: "A \"quoted\" title"`)
	assert.Contains(t, string(b), `date: "2024-01-02T03:04:05Z"`)

	_, err = Render(fs, PostRoot, "content/blog/a-title", PostData{Title: "again"})
	assert.ErrorContains(t, err, "already exists")
}
