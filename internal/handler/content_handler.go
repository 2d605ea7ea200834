package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/content"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// multipartMemory はmultipartフォームをメモリに保持する上限。超えた分は一時ファイルに書き出される。
const multipartMemory = 8 << 20

// AnnouncementServiceInterface はお知らせハンドラーが必要とするサービスインターフェース。
type AnnouncementServiceInterface interface {
	List(ctx context.Context, publishedOnly bool) ([]*model.Announcement, error)
	Get(ctx context.Context, id string) (*model.Announcement, error)
	Create(ctx context.Context, in content.AnnouncementInput) (*model.Announcement, error)
	Update(ctx context.Context, id string, in content.AnnouncementInput) (*model.Announcement, error)
	Delete(ctx context.Context, id string) error
}

// SoundServiceInterface は環境音ハンドラーが必要とするサービスインターフェース。
type SoundServiceInterface interface {
	List(ctx context.Context, publishedOnly bool) ([]*model.AmbientSound, error)
	Get(ctx context.Context, id string, publishedOnly bool) (*model.AmbientSound, error)
	Create(ctx context.Context, in content.SoundInput, upload *content.Upload) (*model.AmbientSound, error)
	Update(ctx context.Context, id string, in content.SoundInput, upload *content.Upload) (*model.AmbientSound, error)
	Delete(ctx context.Context, id string) error
	// ImportFeed はポッドキャストフィードの音声エンクロージャを環境音として取り込む。
	ImportFeed(ctx context.Context, in content.ImportInput) (*content.ImportResult, error)
	// PlaybackURL は再生に使う絶対URLを返す。
	PlaybackURL(a *model.AmbientSound) string
}

// ContentHandler はお知らせと環境音のHTTPハンドラー。
// 公開用（認証済みユーザー）と管理用（管理者のみ）の両方を提供する。
type ContentHandler struct {
	announcements AnnouncementServiceInterface
	sounds        SoundServiceInterface
	maxBodySize   int64
}

// NewContentHandler はContentHandlerを生成する。
// maxUploadSizeはアップロードファイルの上限で、リクエストボディ全体の上限はこれに1MBを加えた値とする。
func NewContentHandler(announcements AnnouncementServiceInterface, sounds SoundServiceInterface, maxUploadSize int64) *ContentHandler {
	return &ContentHandler{
		announcements: announcements,
		sounds:        sounds,
		maxBodySize:   maxUploadSize + maxJSONBodySize,
	}
}

type announcementResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}

type soundResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	FileURL     string    `json:"file_url"`
}

// --- お知らせ ---

// ListPublishedAnnouncements は公開済みのお知らせを新しい順に返す。
// GET /api/announcements
func (h *ContentHandler) ListPublishedAnnouncements(w http.ResponseWriter, r *http.Request) {
	h.listAnnouncements(w, r, true)
}

// ListAnnouncements は全てのお知らせを返す。
// GET /api/admin/announcements
func (h *ContentHandler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	h.listAnnouncements(w, r, false)
}

func (h *ContentHandler) listAnnouncements(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	list, err := h.announcements.List(r.Context(), publishedOnly)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]announcementResponse, len(list))
	for i, a := range list {
		resp[i] = toAnnouncementResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetAnnouncement はお知らせを1件返す。
// GET /api/admin/announcements/{id}
func (h *ContentHandler) GetAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, err := h.announcements.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnouncementResponse(a))
}

// CreateAnnouncement はお知らせを作成する。
// POST /api/admin/announcements
func (h *ContentHandler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var in content.AnnouncementInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	a, err := h.announcements.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAnnouncementResponse(a))
}

// UpdateAnnouncement はお知らせを部分更新する。
// PUT /api/admin/announcements/{id}, PATCH /api/admin/announcements/{id}
func (h *ContentHandler) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var in content.AnnouncementInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	a, err := h.announcements.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnouncementResponse(a))
}

// DeleteAnnouncement はお知らせを削除する。
// DELETE /api/admin/announcements/{id}
func (h *ContentHandler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := h.announcements.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- 環境音 ---

// ListPublishedSounds は公開済みの環境音を返す。
// GET /api/sounds
func (h *ContentHandler) ListPublishedSounds(w http.ResponseWriter, r *http.Request) {
	h.listSounds(w, r, true)
}

// GetPublishedSound は公開済みの環境音を1件返す。非公開の場合は404。
// GET /api/sounds/{id}
func (h *ContentHandler) GetPublishedSound(w http.ResponseWriter, r *http.Request) {
	h.getSound(w, r, true)
}

// ListSounds は全ての環境音を返す。
// GET /api/admin/sounds
func (h *ContentHandler) ListSounds(w http.ResponseWriter, r *http.Request) {
	h.listSounds(w, r, false)
}

// GetSound は環境音を1件返す。
// GET /api/admin/sounds/{id}
func (h *ContentHandler) GetSound(w http.ResponseWriter, r *http.Request) {
	h.getSound(w, r, false)
}

func (h *ContentHandler) listSounds(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	list, err := h.sounds.List(r.Context(), publishedOnly)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]soundResponse, len(list))
	for i, a := range list {
		resp[i] = h.toSoundResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ContentHandler) getSound(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	a, err := h.sounds.Get(r.Context(), chi.URLParam(r, "id"), publishedOnly)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toSoundResponse(a))
}

// CreateSound は環境音を作成する。JSONまたはfileパートを含むmultipart/form-dataを受け付ける。
// POST /api/admin/sounds
func (h *ContentHandler) CreateSound(w http.ResponseWriter, r *http.Request) {
	in, upload, cleanup, err := h.parseSoundRequest(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer cleanup()

	a, err := h.sounds.Create(r.Context(), in, upload)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toSoundResponse(a))
}

// UpdateSound は環境音を部分更新する。ファイルを送った場合は差し替える。
// PUT /api/admin/sounds/{id}, PATCH /api/admin/sounds/{id}
func (h *ContentHandler) UpdateSound(w http.ResponseWriter, r *http.Request) {
	in, upload, cleanup, err := h.parseSoundRequest(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer cleanup()

	a, err := h.sounds.Update(r.Context(), chi.URLParam(r, "id"), in, upload)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toSoundResponse(a))
}

// DeleteSound は環境音とアップロード済みファイルを削除する。
// DELETE /api/admin/sounds/{id}
func (h *ContentHandler) DeleteSound(w http.ResponseWriter, r *http.Request) {
	if err := h.sounds.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportSounds はポッドキャストフィードから環境音を取り込む。
// POST /api/admin/sounds/import
func (h *ContentHandler) ImportSounds(w http.ResponseWriter, r *http.Request) {
	var in content.ImportInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.sounds.ImportFeed(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseSoundRequest はJSONまたはmultipartのリクエストから環境音の入力を組み立てる。
// 返されたcleanupはハンドラー終了時に必ず呼ぶ。
func (h *ContentHandler) parseSoundRequest(w http.ResponseWriter, r *http.Request) (content.SoundInput, *content.Upload, func(), error) {
	var in content.SoundInput
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := decodeJSON(r, &in); err != nil {
			return in, nil, noop, err
		}
		return in, nil, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, nil, noop, model.NewValidationError("アップロードファイルが大きすぎます。")
		}
		return in, nil, noop, model.NewInvalidRequestError()
	}
	form := r.MultipartForm
	cleanup := func() { _ = form.RemoveAll() }

	if v, ok := form.Value["name"]; ok && len(v) > 0 {
		in.Name = model.Some(v[0])
	}
	if v, ok := form.Value["file_url"]; ok && len(v) > 0 {
		in.FileURL = model.Some(v[0])
	}
	if v, ok := form.Value["is_published"]; ok && len(v) > 0 {
		b, err := strconv.ParseBool(strings.TrimSpace(v[0]))
		if err != nil {
			cleanup()
			return in, nil, noop, model.NewValidationError("is_published は true または false で指定してください。")
		}
		in.IsPublished = model.Some(b)
	}

	files := form.File["file"]
	if len(files) == 0 {
		return in, nil, cleanup, nil
	}
	f, err := files[0].Open()
	if err != nil {
		cleanup()
		return in, nil, noop, model.NewInvalidRequestError()
	}
	return in, &content.Upload{Filename: files[0].Filename, Body: f}, func() {
		f.Close()
		cleanup()
	}, nil
}

func toAnnouncementResponse(a *model.Announcement) announcementResponse {
	return announcementResponse{
		ID:          a.ID,
		Title:       a.Title,
		Content:     a.Content,
		Excerpt:     content.Excerpt(a.Content, content.ExcerptLength),
		IsPublished: a.IsPublished,
		CreatedAt:   a.CreatedAt,
	}
}

func (h *ContentHandler) toSoundResponse(a *model.AmbientSound) soundResponse {
	return soundResponse{
		ID:          a.ID,
		Name:        a.Name,
		Key:         a.Key,
		URL:         h.sounds.PlaybackURL(a),
		IsPublished: a.IsPublished,
		CreatedAt:   a.CreatedAt,
		FileURL:     a.FileURL,
	}
}
