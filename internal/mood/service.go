// Package mood は1日1件の気分記録を提供する。
package mood

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/repository"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/stats"
)

// Input は今日の気分記録の入力。moodを省略した場合は model.MoodDefault になる。
type Input struct {
	Mood model.Optional[int]    `json:"mood"`
	Note model.Optional[string] `json:"note"`
}

// Service は気分記録のサービス層。
type Service struct {
	repo repository.MoodRepository
	loc  *time.Location
	now  func() time.Time
}

// NewService はServiceを生成する。locの暦日を「今日」とする。
func NewService(repo repository.MoodRepository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// Today は今日の記録を返す。記録がない場合はnilを返す。
func (s *Service) Today(ctx context.Context, userID string) (*model.MoodRecord, error) {
	rec, err := s.repo.FindByDate(ctx, userID, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to find mood record: %w", err)
	}
	return rec, nil
}

// SetToday は今日の記録を作成または上書きする。同じ日に何度呼んでも1件のみで、最後の値が残る。
func (s *Service) SetToday(ctx context.Context, userID string, in Input) (*model.MoodRecord, error) {
	mood := model.MoodDefault
	if in.Mood.Present() {
		mood = in.Mood.Value
	}
	if mood < model.MoodMin || mood > model.MoodMax {
		return nil, model.NewValidationError(fmt.Sprintf("moodは%d〜%dの範囲で指定してください。", model.MoodMin, model.MoodMax))
	}

	rec := &model.MoodRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Date:      s.today(),
		Mood:      mood,
		Note:      in.Note.Value,
		UpdatedAt: s.now(),
	}
	stored, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to save mood record: %w", err)
	}
	return stored, nil
}

// Recent は直近days日間の記録を新しい順に返す。
func (s *Service) Recent(ctx context.Context, userID string, days int) ([]*model.MoodRecord, error) {
	if days < 1 || days > stats.MaxDays {
		return nil, model.NewValidationError(fmt.Sprintf("daysは1〜%dの整数で指定してください。", stats.MaxDays))
	}
	since := s.today().AddDate(0, 0, -(days - 1))
	records, err := s.repo.ListSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list mood records: %w", err)
	}
	if records == nil {
		records = []*model.MoodRecord{}
	}
	return records, nil
}

func (s *Service) today() time.Time {
	return model.LocalDate(s.now(), s.loc)
}
