package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

const (
	soundNameMaxLength = 100
	mediaURLPrefix     = "/media/"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// SoundConfig は環境音サービスの設定。
type SoundConfig struct {
	BaseURL       string
	MaxUploadSize int64
	ProbeEnabled  bool
	FetchTimeout  time.Duration
	FetchMaxSize  int64
}

// SoundInput は環境音の作成・部分更新の入力。keyは読み取り専用のため受け付けない。
type SoundInput struct {
	Name        model.Optional[string] `json:"name"`
	FileURL     model.Optional[string] `json:"file_url"`
	IsPublished model.Optional[bool]   `json:"is_published"`
}

// Upload はmultipartで受け取った音声ファイル。
type Upload struct {
	Filename string
	Body     io.Reader
}

// SoundService は環境音カタログのサービス層。
type SoundService struct {
	repo   repository.SoundRepository
	media  *MediaStore
	guard  SSRFValidator
	config SoundConfig
	now    func() time.Time
}

// NewSoundService はSoundServiceを生成する。
func NewSoundService(repo repository.SoundRepository, media *MediaStore, guard SSRFValidator, config SoundConfig) *SoundService {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &SoundService{
		repo:   repo,
		media:  media,
		guard:  guard,
		config: config,
		now:    time.Now,
	}
}

// PlaybackURL は再生に使うURLを返す。
// アップロードファイルがあればBASE_URL配下のメディアURL、なければfile_urlを返す。
func (s *SoundService) PlaybackURL(a *model.AmbientSound) string {
	if a.File != "" {
		return s.config.BaseURL + mediaURLPrefix + a.File
	}
	return a.FileURL
}

// List は環境音を新しい順に返す。publishedOnlyがtrueの場合は公開済みのみ。
func (s *SoundService) List(ctx context.Context, publishedOnly bool) ([]*model.AmbientSound, error) {
	list, err := s.repo.List(ctx, publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list sounds: %w", err)
	}
	if list == nil {
		list = []*model.AmbientSound{}
	}
	return list, nil
}

// Get は指定IDの環境音を返す。publishedOnlyがtrueの場合、非公開の環境音はNotFoundとする。
func (s *SoundService) Get(ctx context.Context, id string, publishedOnly bool) (*model.AmbientSound, error) {
	if !model.IsValidID(id) {
		return nil, model.NewSoundNotFoundError(id)
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find sound: %w", err)
	}
	if a == nil || (publishedOnly && !a.IsPublished) {
		return nil, model.NewSoundNotFoundError(id)
	}
	return a, nil
}

// Create は環境音を作成する。ファイルまたは外部URLのいずれかが必須。
func (s *SoundService) Create(ctx context.Context, in SoundInput, upload *Upload) (*model.AmbientSound, error) {
	if !in.Name.Present() {
		return nil, model.NewValidationError("name は必須です。")
	}
	a := &model.AmbientSound{
		ID:          uuid.New().String(),
		IsPublished: true,
		CreatedAt:   s.now(),
	}
	if err := s.apply(ctx, a, in); err != nil {
		return nil, err
	}
	if upload == nil && !a.HasSource() {
		return nil, model.NewSoundSourceMissingError()
	}

	key, err := uniqueKey(ctx, s.repo, a.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate sound key: %w", err)
	}
	a.Key = key

	if upload != nil {
		rel, err := s.store(upload)
		if err != nil {
			return nil, err
		}
		a.File = rel
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.discard(a.File)
		return nil, fmt.Errorf("failed to create sound: %w", err)
	}
	slog.Info("sound created", slog.String("sound_id", a.ID), slog.String("key", a.Key))
	return a, nil
}

// Update は指定されたフィールドのみを更新する。
// 新しいファイルがアップロードされた場合は旧ファイルを削除する。
func (s *SoundService) Update(ctx context.Context, id string, in SoundInput, upload *Upload) (*model.AmbientSound, error) {
	a, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, a, in); err != nil {
		return nil, err
	}
	if upload == nil && !a.HasSource() {
		return nil, model.NewSoundSourceMissingError()
	}

	previous := a.File
	if upload != nil {
		rel, err := s.store(upload)
		if err != nil {
			return nil, err
		}
		a.File = rel
	}

	ok, err := s.repo.Update(ctx, a)
	if err != nil || !ok {
		if a.File != previous {
			s.discard(a.File)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update sound: %w", err)
		}
		return nil, model.NewSoundNotFoundError(id)
	}
	if a.File != previous {
		s.discard(previous)
	}
	return a, nil
}

// Delete は環境音とアップロード済みファイルを削除する。
func (s *SoundService) Delete(ctx context.Context, id string) error {
	a, err := s.Get(ctx, id, false)
	if err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete sound: %w", err)
	}
	if !ok {
		return model.NewSoundNotFoundError(id)
	}
	s.discard(a.File)
	return nil
}

func (s *SoundService) apply(ctx context.Context, a *model.AmbientSound, in SoundInput) error {
	if in.Name.Set {
		name := strings.TrimSpace(in.Name.Value)
		if in.Name.Null || name == "" {
			return model.NewValidationError("name は必須です。")
		}
		if utf8.RuneCountInString(name) > soundNameMaxLength {
			return model.NewValidationError(fmt.Sprintf("name は%d文字以内で入力してください。", soundNameMaxLength))
		}
		a.Name = name
	}
	if in.FileURL.Set {
		fileURL := strings.TrimSpace(in.FileURL.Value)
		if in.FileURL.Null {
			fileURL = ""
		}
		if fileURL != "" && fileURL != a.FileURL {
			if err := s.checkExternalURL(ctx, fileURL); err != nil {
				return err
			}
		}
		a.FileURL = fileURL
	}
	if in.IsPublished.Present() {
		a.IsPublished = in.IsPublished.Value
	}
	return nil
}

// checkExternalURL は外部URLの安全性を検証し、設定されていれば到達性も確認する。
// アプリ自身が配信する /media/ 配下の相対URLは検証しない。
func (s *SoundService) checkExternalURL(ctx context.Context, rawURL string) error {
	if strings.HasPrefix(rawURL, mediaURLPrefix) && !strings.Contains(rawURL, "..") {
		return nil
	}
	if err := s.guard.ValidateURL(rawURL); err != nil {
		return model.NewSoundURLBlockedError(err.Error())
	}
	if !s.config.ProbeEnabled {
		return nil
	}
	if err := s.probe(ctx, rawURL); err != nil {
		slog.Warn("sound url probe failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return model.NewSoundURLBlockedError(err.Error())
	}
	return nil
}

// probe はSSRF防止クライアントでHEADリクエストを送り、2xxであることを確認する。
func (s *SoundService) probe(ctx context.Context, rawURL string) error {
	client := s.guard.NewSafeClient(s.config.FetchTimeout, s.config.FetchMaxSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *SoundService) store(upload *Upload) (string, error) {
	if !IsAudioFilename(upload.Filename) {
		return "", model.NewValidationError("音声ファイル（mp3, m4a, ogg, wav など）をアップロードしてください。")
	}
	rel, err := s.media.SaveSound(upload.Filename, upload.Body, s.config.MaxUploadSize)
	if errors.Is(err, ErrFileTooLarge) {
		return "", model.NewValidationError(fmt.Sprintf("ファイルサイズは%dバイト以下にしてください。", s.config.MaxUploadSize))
	}
	if err != nil {
		return "", fmt.Errorf("failed to store sound file: %w", err)
	}
	return rel, nil
}

func (s *SoundService) discard(rel string) {
	if err := s.media.Remove(rel); err != nil {
		slog.Warn("failed to remove sound file",
			slog.String("file", rel),
			slog.String("error", err.Error()),
		)
	}
}
