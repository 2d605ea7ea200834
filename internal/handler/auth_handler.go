package handler

import (
	"context"
	"net/http"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/auth"
	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register はユーザーを登録し、トークンを発行する。
	Register(ctx context.Context, username, password, nickname string) (*auth.Result, error)
	// Login は資格情報を検証し、トークンを発行または再利用する。
	Login(ctx context.Context, username, password string) (*auth.Result, error)
	// Logout は呼び出し元のトークンを削除する。
	Logout(ctx context.Context, userID string) error
}

// AuthHandler は登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerRequest は登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authUserResponse は認証レスポンスに含まれるユーザー情報。
type authUserResponse struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

// authResponse は登録・ログイン成功時のレスポンス。
type authResponse struct {
	Token string           `json:"token"`
	User  authUserResponse `json:"user"`
}

// Register はユーザー登録を処理する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), req.Username, req.Password, req.Nickname)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Logout はログアウトを処理する。トークンが既に無い場合も成功とする。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detailResponse{Detail: "ログアウトしました。"})
}

// toAuthResponse は認証結果をレスポンス形式に変換する。ニックネームが空の場合はユーザー名を使う。
func toAuthResponse(result *auth.Result) authResponse {
	role := model.RoleUser
	if result.Profile != nil {
		role = result.Profile.Role
	}
	return authResponse{
		Token: result.Token.Key,
		User: authUserResponse{
			ID:       result.User.ID,
			Nickname: model.DisplayName(result.Profile, result.User.Username),
			Role:     string(role),
		},
	}
}
