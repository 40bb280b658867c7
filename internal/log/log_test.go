// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package log

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testLogger struct {
	mu    sync.RWMutex
	lines []string
}

var _ Logger = &testLogger{}

func (t *testLogger) Log(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, msg)
}

func (t *testLogger) Lines() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

func (t *testLogger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = t.lines[:0]
}

func hasMsg(level, text string, lines []string) bool {
	want := msg(level, text)
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func TestLogDirectory(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		f, err := OpenFileAtPath("/some/nonexistent/path")
		assert.Nil(t, f)
		assert.Error(t, err)
	})

	t.Run("valid", func(t *testing.T) {
		dir := t.TempDir()
		f, err := OpenFileAtPath(dir)
		assert.NoError(t, err)
		assert.False(t, f.closed)

		f.Log(msg("INFO", "info!"))
		f.Close()
		assert.True(t, f.closed)

		b, err := os.ReadFile(dir + "/" + LoggerFile)
		assert.NoError(t, err)
		assert.True(t, strings.Contains(string(b), "info!"))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.Close()
			}()
		}
		wg.Wait()
		assert.True(t, f.closed)
	})
}

func TestLog(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	tp := &testLogger{}
	UseLogger(tp)
	defer func(old Level) { levelThreshold = old }(levelThreshold)
	SetLevel(LevelDebug)

	t.Run("Warn", func(t *testing.T) {
		tp.Reset()
		Warn("message %d", 1)
		assert.Equal(t, msg("WARN", "message 1"), tp.Lines()[0])
	})

	t.Run("Debug toggles on level", func(t *testing.T) {
		tp.Reset()
		SetLevel(LevelDebug)
		assert.True(t, DebugEnabled())
		Debug("message %d", 3)
		assert.Equal(t, msg("DEBUG", "message 3"), tp.Lines()[0])

		tp.Reset()
		SetLevel(LevelInfo)
		assert.False(t, DebugEnabled())
		Debug("message %d", 2)
		assert.Len(t, tp.Lines(), 0)
	})

	t.Run("Error coalesces by format", func(t *testing.T) {
		defer func(old time.Duration) { errrate = old }(errrate)
		errrate = 10 * time.Hour

		tp.Reset()
		Error("a message %d", 1)
		Error("a message %d", 2)
		Error("a message %d", 3)
		Error("b message")
		Flush()

		assert.True(t, hasMsg("ERROR", "a message 1, 2 additional messages skipped", tp.Lines()))
		assert.True(t, hasMsg("ERROR", "b message", tp.Lines()))
		assert.Len(t, tp.Lines(), 2)
	})

	t.Run("Error instant", func(t *testing.T) {
		defer func(old time.Duration) { errrate = old }(errrate)
		errrate = 0

		tp.Reset()
		Error("instant message")
		assert.True(t, hasMsg("ERROR", "instant message", tp.Lines()))
	})
}

func TestRecordLoggerIgnore(t *testing.T) {
	r := new(RecordLogger)
	r.Ignore("appsec")
	r.Log("this is an appsec log")
	r.Log("this is a tracer log")
	assert.Len(t, r.Logs(), 1)
	assert.NotContains(t, r.Logs()[0], "appsec")

	r.Reset()
	r.Log("this is an appsec log")
	assert.Len(t, r.Logs(), 1)
}

func TestSetLoggingRate(t *testing.T) {
	cases := []struct {
		input  string
		result time.Duration
	}{
		{"", time.Minute},
		{"0", 0},
		{"10", 10 * time.Second},
		{"-1", time.Minute},
		{"not a number", time.Minute},
	}
	for _, tc := range cases {
		errrate = time.Minute
		setLoggingRate(tc.input)
		assert.Equal(t, tc.result, errrate)
	}
}
