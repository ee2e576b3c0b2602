package audit

import (
	"context"

	"github.com/weiawesome/wes-io-live/avatar-service/pkg/log"
)

// Audit actions for avatar administration.
const (
	ActionChangeAvatar       = "avatar.change"
	ActionChangeAvatarDenied = "avatar.change_denied"
	ActionResetAvatar        = "avatar.reset"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, actorID, targetID int64, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Int64(log.FieldUserID, actorID).
		Int64(log.FieldTargetUserID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, actorID, targetID int64, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Int64(log.FieldUserID, actorID).
		Int64(log.FieldTargetUserID, targetID).
		Str(FieldDetail, detail).
		Msg(msg)
}
