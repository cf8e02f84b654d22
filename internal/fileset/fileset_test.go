package fileset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, rel string, mod time.Time) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(rel), 0o644))
	require.NoError(t, os.Chtimes(p, mod, mod))
}

func rels(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Rel)
	}
	return out
}

func TestIsTemp(t *testing.T) {
	for _, name := range []string{"a.scss~", "#main.scss#", "x.tmp", "x.tmp.1", "x.tmp-2", "x.bak", "x.bak.old", "x.bak-1", "x.ORIG", "x.orig.scss", "x.orig-3", "dir/y.tmp"} {
		assert.True(t, IsTemp(name), name)
	}
	for _, name := range []string{"main.scss", "template.njk", "tmp/main.scss", "orig.js"} {
		assert.False(t, IsTemp(name), name)
	}
}

func TestIsPartial(t *testing.T) {
	assert.True(t, IsPartial("_header.njk"))
	assert.True(t, IsPartial("layouts/_base.njk"))
	assert.True(t, IsPartial("_layouts/base.njk"))
	assert.True(t, IsPartial("a/_b/c/d.scss"))
	assert.False(t, IsPartial("blog/post_1.njk"))
	assert.False(t, IsPartial("index.njk"))
}

func TestSelectorMatches(t *testing.T) {
	sel := Selector{Include: []string{"**/*.scss"}, Exclude: []string{"vendor/**"}, SkipPartials: true}
	assert.True(t, sel.Matches("main.scss"))
	assert.True(t, sel.Matches("pages/home.scss"))
	assert.False(t, sel.Matches("_variables.scss"))
	assert.False(t, sel.Matches("_mixins/grid.scss"))
	assert.False(t, sel.Matches("vendor/reset.scss"))
	assert.False(t, sel.Matches("main.scss~"))
	assert.False(t, sel.Matches("main.css"))

	all := Selector{Include: []string{"**/*"}}
	assert.True(t, all.Matches("_redirects"))
	assert.False(t, all.Matches("logo.png.bak"))
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	old := time.Now().Add(-time.Hour)
	recent := time.Now()
	touch(t, root, "index.njk", old)
	touch(t, root, "blog/post.njk", recent)
	touch(t, root, "_partials/nav.njk", recent)
	touch(t, root, "blog/_draft.njk", recent)
	touch(t, root, "about.njk.bak", recent)
	touch(t, root, "notes.txt", recent)

	sel := Selector{Include: []string{"**/*.njk"}, SkipPartials: true}

	files, err := Collect(root, sel, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{"blog/post.njk", "index.njk"}, rels(files))
	assert.True(t, filepath.IsAbs(files[0].Abs))

	files, err = Collect(root, sel, old.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"blog/post.njk"}, rels(files))
}

func TestCollect_MissingRoot(t *testing.T) {
	files, err := Collect(filepath.Join(t.TempDir(), "nope"), Selector{Include: []string{"**/*"}}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "blog/post.html", ReplaceExt("blog/post.njk", ".html"))
	assert.Equal(t, "main.css", ReplaceExt("main.scss", ".css"))
}
