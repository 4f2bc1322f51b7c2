package helper

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerHandle(t *testing.T) {
	tests := []struct {
		name     string
		level    slog.Level
		message  string
		attrs    []slog.Attr
		expected []string
	}{
		{
			name:     "Debug with string attribute",
			level:    slog.LevelDebug,
			message:  "Detected query terms",
			attrs:    []slog.Attr{slog.String("terms", "jhana")},
			expected: []string{"DEBUG:", "Detected query terms", `"terms":"jhana"`},
		},
		{
			name:     "Info with counts",
			level:    slog.LevelInfo,
			message:  "Ingested document",
			attrs:    []slog.Attr{slog.String("filename", "metta.pdf"), slog.Int("added", 12), slog.Int("skipped", 0)},
			expected: []string{"INFO:", "Ingested document", `"added":12`, `"filename":"metta.pdf"`, `"skipped":0`},
		},
		{
			name:     "Warn with bool",
			level:    slog.LevelWarn,
			message:  "Supplemental lookup failed",
			attrs:    []slog.Attr{slog.Bool("skipped", true)},
			expected: []string{"WARN:", "Supplemental lookup failed", `"skipped":true`},
		},
		{
			name:     "Error with error text",
			level:    slog.LevelError,
			message:  "Provider failed",
			attrs:    []slog.Attr{slog.String("error", "status 503")},
			expected: []string{"ERROR:", "Provider failed", "status 503"},
		},
		{
			name:     "No attributes",
			level:    slog.LevelInfo,
			message:  "Restored engine state",
			expected: []string{"INFO:", "Restored engine state", "{}"},
		},
		{
			name:     "Nested attribute",
			level:    slog.LevelInfo,
			message:  "Glossary summary",
			attrs:    []slog.Attr{slog.Any("summary", map[string]int{"total_terms": 3})},
			expected: []string{"Glossary summary", `"summary":{"total_terms":3}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug}})

			record := slog.NewRecord(time.Now(), tt.level, tt.message, 0)
			record.AddAttrs(tt.attrs...)

			require.NoError(t, handler.Handle(context.Background(), record))
			for _, expected := range tt.expected {
				assert.Contains(t, buf.String(), expected)
			}
			assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\.\d{3}\] `, buf.String())
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("Level filters records", func(t *testing.T) {
		logger := NewLogger(slog.LevelWarn)
		ctx := context.Background()

		assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
		assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
		assert.True(t, logger.Enabled(ctx, slog.LevelError))
	})

	t.Run("Empty options default to info", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		assert.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
		assert.True(t, handler.Enabled(context.Background(), slog.LevelInfo))
	})
}
