package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// layeredFiles serves the first root that contains the requested path,
// falling back to the last root.
func layeredFiles(roots ...string) http.Handler {
	servers := make([]http.Handler, len(roots))
	for i, root := range roots {
		servers[i] = http.FileServer(http.Dir(root))
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upath := path.Clean("/" + r.URL.Path)
		for i, root := range roots[:len(roots)-1] {
			if exists(filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(upath, "/")))) {
				servers[i].ServeHTTP(w, r)
				return
			}
		}
		servers[len(servers)-1].ServeHTTP(w, r)
	})
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// noCache keeps browsers from holding on to stale builds.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		next.ServeHTTP(w, r)
	})
}
