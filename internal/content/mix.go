package content

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/catalog"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
)

// ミックスの入力制約
const (
	mixNameMaxLength = 100
	mixMaxLayers     = 8
)

// MixInput はサウンドミックス作成の入力。
type MixInput struct {
	Name   string   `json:"name"`
	Layers []string `json:"layers"`
}

// Mix はプリセットとユーザー保存ミックスに共通のレスポンス形式。
type Mix struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Layers    []string   `json:"layers"`
	IsPreset  bool       `json:"is_preset"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// LayerCatalog はミックスのレイヤー検証とプリセット取得に使うカタログ。
type LayerCatalog interface {
	IsKnownLayer(layer string) bool
	Presets() []catalog.MixPreset
}

// MixService はサウンドミックスのサービス層。
type MixService struct {
	repo    repository.SoundMixRepository
	catalog LayerCatalog
	now     func() time.Time
}

// NewMixService はMixServiceを生成する。
func NewMixService(repo repository.SoundMixRepository, catalog LayerCatalog) *MixService {
	return &MixService{repo: repo, catalog: catalog, now: time.Now}
}

// List はカタログのプリセットに続けて、ユーザーの保存済みミックスを新しい順に返す。
func (s *MixService) List(ctx context.Context, userID string) ([]Mix, error) {
	mixes, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sound mixes: %w", err)
	}

	presets := s.catalog.Presets()
	out := make([]Mix, 0, len(presets)+len(mixes))
	for _, p := range presets {
		out = append(out, Mix{ID: p.ID, Name: p.Name, Layers: p.Layers, IsPreset: true})
	}
	for _, m := range mixes {
		out = append(out, toMix(m))
	}
	return out, nil
}

// Create はミックスを保存する。レイヤーはカタログのシーンIDまたはタイトルに限る。
func (s *MixService) Create(ctx context.Context, userID string, in MixInput) (*Mix, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, model.NewValidationError("name は必須です。")
	}
	if utf8.RuneCountInString(name) > mixNameMaxLength {
		return nil, model.NewValidationError(fmt.Sprintf("name は%d文字以内で入力してください。", mixNameMaxLength))
	}
	if len(in.Layers) == 0 || len(in.Layers) > mixMaxLayers {
		return nil, model.NewValidationError(fmt.Sprintf("layers は1〜%d件で指定してください。", mixMaxLayers))
	}

	layers := make([]string, 0, len(in.Layers))
	for _, layer := range in.Layers {
		layer = strings.TrimSpace(layer)
		if !s.catalog.IsKnownLayer(layer) {
			return nil, model.NewValidationError(fmt.Sprintf("不明なレイヤーです: %s", layer))
		}
		layers = append(layers, layer)
	}

	m := &model.SoundMix{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Layers:    layers,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create sound mix: %w", err)
	}

	mix := toMix(m)
	return &mix, nil
}

func toMix(m *model.SoundMix) Mix {
	created := m.CreatedAt
	return Mix{
		ID:        m.ID,
		Name:      m.Name,
		Layers:    m.Layers,
		CreatedAt: &created,
	}
}
