package audit

import (
	"context"
	"log/slog"
	"time"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, username, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID := ctx.Value("request_id"); reqID != nil {
		requestID, _ = reqID.(string)
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("username", username),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogRoleChange(ctx context.Context, actor, subjectID, status, details string) {
	al.LogAction(ctx, actor, "update_roles", "user", subjectID, status, details)
}

func (al *Logger) LogUserDeletion(ctx context.Context, actor, subjectID, status string) {
	al.LogAction(ctx, actor, "delete", "user", subjectID, status, "")
}

func (al *Logger) LogBedSearchDenied(ctx context.Context, username, reason string) {
	al.LogAction(ctx, username, "access_denied", "bed_search", "", "denied", reason)
}
