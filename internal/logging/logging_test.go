package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	for _, tc := range []struct {
		level string
		json  bool
		want  zapcore.Level
	}{
		{"debug", false, zapcore.DebugLevel},
		{"info", true, zapcore.InfoLevel},
		{" warn ", true, zapcore.WarnLevel},
		{"", false, zapcore.InfoLevel},
	} {
		logger, err := New(tc.level, tc.json)
		if err != nil {
			t.Fatalf("New(%q): %v", tc.level, err)
		}
		if !logger.Core().Enabled(tc.want) {
			t.Fatalf("New(%q): level %s not enabled", tc.level, tc.want)
		}
		if tc.want > zapcore.DebugLevel && logger.Core().Enabled(tc.want-1) {
			t.Fatalf("New(%q): level below %s enabled", tc.level, tc.want)
		}
	}
	if _, err := New("loud", false); err == nil {
		t.Fatalf("expected invalid level error")
	}
}
