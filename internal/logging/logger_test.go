package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewTagsRecordsAndHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "warn", "FastPay", "test")

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %s", buf.String())
	}

	logger.Warn("kept")
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["service"] != "FastPay" || record["env"] != "test" || record["msg"] != "kept" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	newWithWriter(&buf, "loud", "", "").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written with invalid level")
	}
}
