package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/shift-roster/internal/application"
	"github.com/example/shift-roster/internal/logging"
)

var (
	errBadRequestBody   = errors.New("無効なリクエスト形式です。")
	errInvalidShiftID   = errors.New("無効なシフト ID です。")
	errInvalidSnapshot  = errors.New("無効なスナップショット ID です。")
	errInvalidQuery     = errors.New("クエリパラメータの値が不正です。")
	errMissingWriteAuth = errors.New("書き込みトークンを指定してください。")
	errInvalidWriteAuth = errors.New("書き込みトークンが無効です。")
)

const (
	codeStaleWrite   = "STALE_WRITE"
	codeShiftOverlap = "SHIFT_OVERLAP"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeConflict answers 409 and carries the service result so clients can
// show what blocked the write.
func (r responder) writeConflict(ctx context.Context, w http.ResponseWriter, code string, result any) {
	message := "他のユーザーが先に更新しました。最新の内容を取得してから再度お試しください。"
	if code == codeShiftOverlap {
		message = "同じ担当者の別のシフトと時間が重なっています。"
	}
	r.writeJSON(ctx, w, http.StatusConflict, conflictResponse{
		ErrorCode: code,
		Message:   message,
		Result:    result,
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrNotConfigured):
		r.loggerFor(ctx).ErrorContext(ctx, "service not configured", "error", err)
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Message: localizedStatusMessage(http.StatusServiceUnavailable)})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			details := localizeValidationErrors(vErr)
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  details,
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.Resolve(ctx, r.logger)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusServiceUnavailable:
		return "サービスを利用できません。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "person is required":
		return "担当者は必須です。"
	case "id is required", "shift id is required":
		return "ID は必須です。"
	case "invalid day code":
		return "曜日コードが不正です。"
	case "invalid end day code":
		return "終了曜日コードが不正です。"
	case "end day must be the day after the start day":
		return "終了曜日は開始曜日の翌日である必要があります。"
	case "end must be after start on the same day":
		return "終了時刻は開始時刻より後である必要があります。"
	case "24:00 cannot end an overnight shift":
		return "日をまたぐシフトの終了時刻に 24:00 は指定できません。"
	case "shift duration must be within (0, 24h]":
		return "シフトの長さは 0 分より長く 24 時間以内である必要があります。"
	case "task is required":
		return "タスクは必須です。"
	case "duration must be positive":
		return "長さは正の値で指定してください。"
	case "offset must not be negative":
		return "開始オフセットに負の値は指定できません。"
	case "start date must be YYYY-MM-DD", "end date must be YYYY-MM-DD", "date must be YYYY-MM-DD":
		return "日付は YYYY-MM-DD 形式で指定してください。"
	case "end date must not be before start date":
		return "終了日は開始日以降である必要があります。"
	case "invalid start time":
		return "開始時刻が不正です。"
	case "invalid end time":
		return "終了時刻が不正です。"
	case "week start is required":
		return "週の開始日は必須です。"
	case "at least one shift id is required":
		return "少なくとも 1 件のシフト ID を指定してください。"
	case "snapshot id is required":
		return "スナップショット ID は必須です。"
	case "agent cannot supervise themselves":
		return "自分自身を上長に指定することはできません。"
	case "supervisor chain forms a cycle":
		return "上長の指定が循環しています。"
	default:
		switch {
		case strings.HasPrefix(message, "invalid start time"):
			return "開始時刻が不正です: " + strings.TrimSpace(strings.TrimPrefix(message, "invalid start time"))
		case strings.HasPrefix(message, "invalid end time"):
			return "終了時刻が不正です: " + strings.TrimSpace(strings.TrimPrefix(message, "invalid end time"))
		case strings.HasPrefix(message, "duplicate shift id"):
			return "シフト ID が重複しています: " + strings.TrimSpace(strings.TrimPrefix(message, "duplicate shift id"))
		case strings.HasPrefix(message, "unknown supervisor"):
			return "存在しない上長が指定されています: " + strings.TrimSpace(strings.TrimPrefix(message, "unknown supervisor"))
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type conflictResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Result    any    `json:"result"`
}
