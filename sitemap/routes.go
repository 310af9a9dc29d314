package sitemap

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var pageExts = []string{".tsx", ".ts", ".jsx", ".js"}

func isPageFile(name string) bool {
	if !strings.HasPrefix(name, "page.") {
		return false
	}
	for _, ext := range pageExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// StaticRoutes collects the frontend routes under appDir that have a page
// file and no dynamic segment. "/" is always present; a missing appDir is
// not an error.
func StaticRoutes(appDir string) ([]string, error) {
	routes := map[string]struct{}{"/": {}}
	if appDir != "" {
		err := filepath.WalkDir(appDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isPageFile(d.Name()) {
				return nil
			}
			rel, err := filepath.Rel(appDir, filepath.Dir(path))
			if err != nil || rel == "." {
				return nil
			}
			var parts []string
			for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
				if part == "" || strings.HasPrefix(part, ".") {
					continue
				}
				// 动态路由段不进 sitemap
				if strings.ContainsAny(part, "[]") {
					return nil
				}
				parts = append(parts, part)
			}
			routes["/"+strings.Join(parts, "/")] = struct{}{}
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	out := make([]string, 0, len(routes))
	for r := range routes {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}
