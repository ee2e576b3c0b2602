package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/weiawesome/wes-io-live/avatar-service/pkg/log"
)

func TestLogWithDetail(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(log.Config{Level: "info"}, &buf)
	ctx := log.WithLogger(context.Background(), logger)

	LogWithDetail(ctx, ActionChangeAvatar, 11, 12, "U", "avatar changed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry[log.FieldLogType] != log.LogTypeAudit || entry[FieldAction] != ActionChangeAvatar {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry[log.FieldUserID] != float64(11) || entry[log.FieldTargetUserID] != float64(12) {
		t.Errorf("unexpected ids in %v", entry)
	}
	if entry[FieldDetail] != "U" {
		t.Errorf("missing detail in %v", entry)
	}
}
