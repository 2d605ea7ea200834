package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthCheckTimeout はDB疎通確認のタイムアウト。
const healthCheckTimeout = 3 * time.Second

// HealthChecker はDBの疎通確認インターフェース。*sql.DB および *sqlx.DB が満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// healthResponse は /health のレスポンス。
type healthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// NewHealthHandler は /health のハンドラーを返す。
// DBに接続できない場合は503を返す。checkerがnilの場合はDB確認を省略する。
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:    "ok",
			Database:  "skipped",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()

			if err := checker.PingContext(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				resp.Status = "unavailable"
				resp.Database = "unreachable"
				writeJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
			resp.Database = "ok"
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
