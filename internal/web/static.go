// Package web はアップロード済みメディアとSPAのビルド成果物を配信する。
package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// indexFile はSPAのエントリーポイント。
const indexFile = "index.html"

// NewMediaHandler はMEDIA_ROOT配下のファイルを /media/ で配信するハンドラーを返す。
// ディレクトリ一覧は返さない。
func NewMediaHandler(root string) http.Handler {
	fs := http.FileServer(noListingFS{http.Dir(root)})
	return http.StripPrefix("/media/", fs)
}

// NewSPAHandler はSTATIC_DIRのビルド成果物を配信するハンドラーを返す。
// 存在しないパスはクライアント側ルーティングのためにindex.htmlを返す。
func NewSPAHandler(staticDir string) http.Handler {
	files := http.FileServer(noListingFS{http.Dir(staticDir)})
	index := filepath.Join(staticDir, indexFile)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean != "/" {
			full := filepath.Join(staticDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
			if info, err := os.Stat(full); err == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}

		if _, err := os.Stat(index); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	})
}

// noListingFS はディレクトリを開こうとするとNotExistを返すhttp.FileSystem。
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
