// Package cleanup は期限切れ認証トークンの定期削除ジョブを提供する。
// 削除はTOKEN_CLEANUP_SCHEDULEのcron式に従って実行される。
// 期限切れトークンは認証時にも拒否されるため、このジョブはテーブルの肥大化を防ぐためのもの。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// TokenPurger は期限切れトークンを削除するインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// CleanupJob は期限切れトークンの削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	purger TokenPurger
	logger *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(purger TokenPurger, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		purger: purger,
		logger: logger,
	}
}

// Run は期限切れトークンを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.purger.PurgeExpiredTokens(ctx)
	if err != nil {
		j.logger.Error("トークンクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("トークンクリーンアップの実行に失敗: %w", err)
	}

	j.logger.Info("トークンクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Scheduler はcron式に従ってCleanupJobを実行する。
type Scheduler struct {
	job  *CleanupJob
	cron *cron.Cron
	spec string
}

// NewScheduler はspecのcron式（"@daily" などの記述子も可）でジョブを実行するSchedulerを生成する。
// specが不正な場合はエラーを返す。
func NewScheduler(job *CleanupJob, spec string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	s := &Scheduler{job: job, cron: c, spec: spec}
	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start はスケジューラを起動し、ctxがキャンセルされるまでブロックする。
// 起動直後に1回ジョブを実行する。実行中のジョブの完了を待ってから戻る。
func (s *Scheduler) Start(ctx context.Context) {
	s.job.logger.Info("token cleanup scheduler starting", slog.String("schedule", s.spec))

	s.runOnce()
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()

	s.job.logger.Info("token cleanup scheduler stopped")
}

// NextRun は次回の実行予定時刻を返す。Start前はゼロ値を返す。
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runOnce() {
	// cronのジョブはコンテキストを持たないため、1回の実行ごとにタイムアウトを設ける
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_ = s.job.Run(ctx)
}
