package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// ManifestFile はBOOTSTRAP_DIR直下の同梱環境音マニフェストのファイル名。
const ManifestFile = "sound_sources.yaml"

// ManifestEntry は同梱環境音マニフェストの1件。
type ManifestEntry struct {
	Filename string `yaml:"filename"`
	Name     string `yaml:"name"`
}

// LoadManifest はマニフェストを読み込む。ファイルが存在しない場合は空のマニフェストを返す。
func LoadManifest(path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sound manifest %s: %w", path, err)
	}

	var entries []ManifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse sound manifest %s: %w", path, err)
	}
	return entries, nil
}

// SyncManifest は同梱の音声ファイルをMEDIA_ROOT/soundsにコピーし、
// 公開済みの環境音としてkey単位で取得または作成する。
// ファイルは配置先に存在しない場合のみコピーし、keyが既存の環境音は変更しない。
// sourceDirはBOOTSTRAP_DIR/sounds を想定する。
func (s *SoundService) SyncManifest(ctx context.Context, entries []ManifestEntry, sourceDir string) (*ImportResult, error) {
	result := &ImportResult{}
	for _, e := range entries {
		filename := path.Base(filepath.ToSlash(strings.TrimSpace(e.Filename)))
		if filename == "" || filename == "." || filename == "/" {
			result.Skipped++
			continue
		}
		rel := path.Join(SoundsDir, filename)

		if err := s.copyBundled(filepath.Join(sourceDir, filename), rel); err != nil {
			return nil, err
		}

		stem := strings.TrimSuffix(filename, path.Ext(filename))
		key := Slugify(stem)
		if key == "" {
			key = stem
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = filename
		}

		created, err := s.repo.CreateIfKeyAbsent(ctx, &model.AmbientSound{
			ID:          uuid.New().String(),
			Name:        name,
			Key:         key,
			File:        rel,
			IsPublished: true,
			CreatedAt:   s.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bundled sound %s: %w", key, err)
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	slog.Info("bundled sounds synced",
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}

// copyBundled は同梱ファイルが存在し、配置先にまだ無い場合のみコピーする。
func (s *SoundService) copyBundled(src, rel string) error {
	if s.media.Exists(rel) {
		return nil
	}
	f, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("bundled sound file not found", slog.String("file", src))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open bundled sound %s: %w", src, err)
	}
	defer f.Close()
	return s.media.Put(rel, f)
}
