package content

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// fakeAnnouncementRepo はメモリ上のAnnouncementRepository。
type fakeAnnouncementRepo struct {
	items map[string]*model.Announcement
}

func newFakeAnnouncementRepo() *fakeAnnouncementRepo {
	return &fakeAnnouncementRepo{items: map[string]*model.Announcement{}}
}

func (r *fakeAnnouncementRepo) List(_ context.Context, publishedOnly bool) ([]*model.Announcement, error) {
	var out []*model.Announcement
	for _, a := range r.items {
		if publishedOnly && !a.IsPublished {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeAnnouncementRepo) FindByID(_ context.Context, id string) (*model.Announcement, error) {
	a, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAnnouncementRepo) Create(_ context.Context, a *model.Announcement) error {
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeAnnouncementRepo) Update(_ context.Context, a *model.Announcement) (bool, error) {
	if _, ok := r.items[a.ID]; !ok {
		return false, nil
	}
	cp := *a
	r.items[a.ID] = &cp
	return true, nil
}

func (r *fakeAnnouncementRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

// fakeSoundRepo はメモリ上のSoundRepository。keyの一意性を再現する。
type fakeSoundRepo struct {
	mu        sync.Mutex
	items     map[string]*model.AmbientSound
	createErr error
}

func newFakeSoundRepo() *fakeSoundRepo {
	return &fakeSoundRepo{items: map[string]*model.AmbientSound{}}
}

func (r *fakeSoundRepo) List(_ context.Context, publishedOnly bool) ([]*model.AmbientSound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AmbientSound
	for _, a := range r.items {
		if publishedOnly && !a.IsPublished {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeSoundRepo) FindByID(_ context.Context, id string) (*model.AmbientSound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeSoundRepo) KeyExists(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keyExists(key), nil
}

func (r *fakeSoundRepo) keyExists(key string) bool {
	for _, a := range r.items {
		if a.Key == key {
			return true
		}
	}
	return false
}

func (r *fakeSoundRepo) Create(_ context.Context, a *model.AmbientSound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.keyExists(a.Key) {
		return errors.New("duplicate key")
	}
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeSoundRepo) CreateIfKeyAbsent(_ context.Context, a *model.AmbientSound) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keyExists(a.Key) {
		return false, nil
	}
	cp := *a
	r.items[a.ID] = &cp
	return true, nil
}

func (r *fakeSoundRepo) Update(_ context.Context, a *model.AmbientSound) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[a.ID]
	if !ok {
		return false, nil
	}
	cp := *a
	cp.Key = stored.Key
	r.items[a.ID] = &cp
	return true, nil
}

func (r *fakeSoundRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

// fakeGuard はSSRFValidatorのテスト実装。
// "blocked" を含むURLを拒否し、クライアントはhttptestサーバー向けのものを返す。
type fakeGuard struct {
	client *http.Client
}

func (g *fakeGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("empty URL")
	}
	if strings.Contains(rawURL, "blocked") {
		return errors.New("blocked host")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return errors.New("disallowed scheme")
	}
	return nil
}

func (g *fakeGuard) NewSafeClient(timeout time.Duration, _ int64) *http.Client {
	if g.client != nil {
		return g.client
	}
	return &http.Client{Timeout: timeout}
}

// fakeMixRepo はメモリ上のSoundMixRepository。
type fakeMixRepo struct {
	mixes []*model.SoundMix
}

func (r *fakeMixRepo) ListByUser(_ context.Context, userID string) ([]*model.SoundMix, error) {
	var out []*model.SoundMix
	for i := len(r.mixes) - 1; i >= 0; i-- {
		if r.mixes[i].UserID == userID {
			out = append(out, r.mixes[i])
		}
	}
	return out, nil
}

func (r *fakeMixRepo) Create(_ context.Context, m *model.SoundMix) error {
	r.mixes = append(r.mixes, m)
	return nil
}

// apiCode はエラーがAPIErrorであればそのコードを返す。
func apiCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
