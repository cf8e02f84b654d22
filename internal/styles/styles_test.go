package styles

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

type fakeCompiler struct {
	mu       sync.Mutex
	requests []Request
	fail     map[string]error
	srcMap   string
}

func (f *fakeCompiler) Compile(_ context.Context, req Request) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err, ok := f.fail[filepath.Base(req.Path)]; ok {
		return Result{}, err
	}
	res := Result{CSS: "/* " + filepath.Base(req.Path) + " */ " + strings.TrimSpace(req.Source)}
	if req.SourceMap {
		res.SourceMap = f.srcMap
	}
	return res, nil
}

func (f *fakeCompiler) Close() error { return nil }

func setup(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Styles = filepath.Join(root, "src", "styles")
	cfg.Output.Dev = filepath.Join(root, "_dev")
	cfg.Output.Prod = filepath.Join(root, "dist")
	write := func(rel, body string) {
		p := filepath.Join(cfg.Paths.Styles, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	write("main.scss", "body { color: red; }")
	write("pages/home.scss", ".home { margin: 0; }")
	write("_variables.scss", "$c: red;")
	write("_mixins/grid.scss", "@mixin grid {}")
	write("main.scss~", "stale")
	return cfg
}

func TestTask_CompilesEntriesOnly(t *testing.T) {
	cfg := setup(t)
	fc := &fakeCompiler{}
	st := build.NewState(cfg, "styles", config.ModeProd, nil)

	require.NoError(t, NewTask(cfg, fc).Run(context.Background(), st))

	require.Len(t, fc.requests, 2)
	for _, req := range fc.requests {
		assert.True(t, req.Compressed)
		assert.False(t, req.SourceMap)
		assert.Contains(t, req.IncludePaths, "node_modules")
		assert.Contains(t, req.IncludePaths, filepath.Dir(req.Path))
	}

	css, err := os.ReadFile(filepath.Join(cfg.Output.Prod, "css", "main.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "color: red")
	assert.FileExists(t, filepath.Join(cfg.Output.Prod, "css", "pages", "home.css"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Prod, "css", "_variables.css"))
	assert.Equal(t, 2, st.Report.Files())
}

func TestTask_DevSourceMaps(t *testing.T) {
	cfg := setup(t)
	cfg.Styles.SourceMaps = true
	fc := &fakeCompiler{srcMap: `{"version":3}`}
	st := build.NewState(cfg, "styles", config.ModeDev, nil)

	require.NoError(t, NewTask(cfg, fc).Run(context.Background(), st))

	css, err := os.ReadFile(filepath.Join(cfg.Output.Dev, "css", "main.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "sourceMappingURL=main.css.map")
	assert.FileExists(t, filepath.Join(cfg.Output.Dev, "css", "main.css.map"))
	assert.False(t, fc.requests[0].Compressed)
	assert.Equal(t, 4, st.Report.Files())
}

func TestTask_CompileErrorIsClassified(t *testing.T) {
	cfg := setup(t)
	cause := errors.New("expected \"}\"")
	fc := &fakeCompiler{fail: map[string]error{"main.scss": cause}}
	st := build.NewState(cfg, "styles", config.ModeProd, nil)

	err := NewTask(cfg, fc).Run(context.Background(), st)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryStyles, ce.Category())
	path, _ := ce.Context().GetString("path")
	assert.Equal(t, "main.scss", path)
}

func TestTask_MissingSourceDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Styles = filepath.Join(t.TempDir(), "none")
	cfg.Output.Prod = filepath.Join(t.TempDir(), "dist")
	fc := &fakeCompiler{}
	st := build.NewState(cfg, "styles", config.ModeProd, nil)
	require.NoError(t, NewTask(cfg, fc).Run(context.Background(), st))
	assert.Empty(t, fc.requests)
}

func TestFileURL(t *testing.T) {
	u := fileURL("/tmp/site/main.scss")
	assert.Equal(t, "file:///tmp/site/main.scss", u)
}

func TestDartSass_CloseWithoutStart(t *testing.T) {
	assert.NoError(t, NewDartSass("").Close())
	assert.Equal(t, "sass", NewDartSass("").binaryName())
}
