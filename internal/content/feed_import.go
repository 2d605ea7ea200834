package content

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// ImportInput はフィード取り込みの入力。
type ImportInput struct {
	FeedURL string               `json:"feed_url"`
	Publish model.Optional[bool] `json:"publish"`
}

// ImportResult はフィード取り込みの結果。
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// audioEnclosure はフィード記事の音声エンクロージャ。
type audioEnclosure struct {
	Key  string
	Name string
	URL  string
}

// ImportFeed はポッドキャストのRSS/Atomフィードを取得し、
// 音声エンクロージャごとに環境音を作成する。keyが既存の記事はスキップする。
func (s *SoundService) ImportFeed(ctx context.Context, in ImportInput) (*ImportResult, error) {
	feedURL := strings.TrimSpace(in.FeedURL)
	if feedURL == "" {
		return nil, model.NewValidationError("feed_url は必須です。")
	}
	if err := s.guard.ValidateURL(feedURL); err != nil {
		return nil, model.NewSoundURLBlockedError(err.Error())
	}
	publish := true
	if in.Publish.Present() {
		publish = in.Publish.Value
	}

	body, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		slog.Warn("sound feed fetch failed",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewFeedImportFailedError(err.Error())
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, model.NewFeedImportFailedError(err.Error())
	}

	result := &ImportResult{}
	for _, item := range parsed.Items {
		enc, ok := audioEnclosureOf(item)
		if !ok || s.guard.ValidateURL(enc.URL) != nil {
			result.Skipped++
			continue
		}

		created, err := s.repo.CreateIfKeyAbsent(ctx, &model.AmbientSound{
			ID:          uuid.New().String(),
			Name:        enc.Name,
			Key:         enc.Key,
			FileURL:     enc.URL,
			IsPublished: publish,
			CreatedAt:   s.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to import sound: %w", err)
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	slog.Info("sound feed imported",
		slog.String("feed_url", feedURL),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}

// fetchFeed はSSRF防止クライアントでフィード本文を取得する。
func (s *SoundService) fetchFeed(ctx context.Context, feedURL string) ([]byte, error) {
	client := s.guard.NewSafeClient(s.config.FetchTimeout, s.config.FetchMaxSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

// audioEnclosureOf は記事の最初の音声エンクロージャを返す。
// keyは記事のGUID（なければタイトル）のスラッグ。
func audioEnclosureOf(item *gofeed.Item) (audioEnclosure, bool) {
	if item == nil {
		return audioEnclosure{}, false
	}

	var url string
	for _, e := range item.Enclosures {
		if e == nil || e.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Type), "audio/") || IsAudioFilename(e.URL) {
			url = e.URL
			break
		}
	}
	if url == "" {
		return audioEnclosure{}, false
	}

	source := item.GUID
	if source == "" {
		source = item.Title
	}
	key := Slugify(source)
	if key == "" {
		return audioEnclosure{}, false
	}

	name := strings.TrimSpace(item.Title)
	if name == "" {
		name = key
	}
	if utf8.RuneCountInString(name) > soundNameMaxLength {
		name = string([]rune(name)[:soundNameMaxLength])
	}

	return audioEnclosure{Key: key, Name: name, URL: url}, true
}
