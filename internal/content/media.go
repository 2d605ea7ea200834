package content

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SoundsDir はMEDIA_ROOT配下の環境音ファイル格納ディレクトリ。
const SoundsDir = "sounds"

// audioExtensions はアップロードを受け付ける音声ファイルの拡張子。
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".oga":  true,
	".wav":  true,
	".flac": true,
	".webm": true,
}

// ErrFileTooLarge はアップロードがサイズ上限を超えた場合のエラー。
var ErrFileTooLarge = errors.New("uploaded file exceeds size limit")

// IsAudioFilename は拡張子が音声ファイルのものかを返す。
func IsAudioFilename(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// MediaStore はMEDIA_ROOTをルートとするローカルファイルストレージ。
// 保存したファイルはMEDIA_ROOTからの相対パス（スラッシュ区切り）で識別する。
type MediaStore struct {
	root string
}

// NewMediaStore はMediaStoreを生成する。
func NewMediaStore(root string) *MediaStore {
	return &MediaStore{root: root}
}

// Root はストレージのルートディレクトリを返す。
func (m *MediaStore) Root() string {
	return m.root
}

// EnsureDirs はルートと環境音ディレクトリを作成する。
func (m *MediaStore) EnsureDirs() error {
	if err := os.MkdirAll(filepath.Join(m.root, SoundsDir), 0o755); err != nil {
		return fmt.Errorf("failed to create media directories: %w", err)
	}
	return nil
}

// SaveSound は音声ファイルを一意な名前でsounds/配下に保存し、相対パスを返す。
// maxSizeが正の場合、超過したファイルは書き込み途中で削除してErrFileTooLargeを返す。
func (m *MediaStore) SaveSound(filename string, r io.Reader, maxSize int64) (string, error) {
	if err := m.EnsureDirs(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	rel := path.Join(SoundsDir, uuid.New().String()+ext)
	dst := m.abs(rel)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}

	src := r
	if maxSize > 0 {
		src = io.LimitReader(r, maxSize+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to write media file: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to close media file: %w", closeErr)
	case maxSize > 0 && n > maxSize:
		_ = os.Remove(dst)
		return "", ErrFileTooLarge
	}
	return rel, nil
}

// Put は相対パスを指定してファイルを書き込む。既存ファイルは上書きする。
func (m *MediaStore) Put(rel string, r io.Reader) error {
	dst := m.abs(rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close media file: %w", err)
	}
	return nil
}

// Remove は相対パスのファイルを削除する。存在しない場合は何もしない。
func (m *MediaStore) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	if err := os.Remove(m.abs(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove media file: %w", err)
	}
	return nil
}

// Exists は相対パスのファイルが存在するかを返す。
func (m *MediaStore) Exists(rel string) bool {
	if rel == "" {
		return false
	}
	info, err := os.Stat(m.abs(rel))
	return err == nil && !info.IsDir()
}

// abs は相対パスをルート配下の絶対パスに変換する。
// ".."を含むパスはルートの外に出ないよう正規化する。
func (m *MediaStore) abs(rel string) string {
	clean := path.Clean("/" + rel)
	return filepath.Join(m.root, filepath.FromSlash(clean))
}
