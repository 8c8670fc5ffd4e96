package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Errorf("debug parsed as %v", got)
	}
	if got := ParseLevel("warn"); got != zerolog.WarnLevel {
		t.Errorf("warn parsed as %v", got)
	}
	// 为空或写错都回退 info，启动不该因此失败
	if got := ParseLevel(""); got != zerolog.InfoLevel {
		t.Errorf("empty parsed as %v", got)
	}
	if got := ParseLevel("loud"); got != zerolog.InfoLevel {
		t.Errorf("unknown parsed as %v", got)
	}
}
