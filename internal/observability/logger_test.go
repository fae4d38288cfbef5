package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantErr   bool
		wantLevel zapcore.Level
	}{
		{name: "json info", level: "info", format: FormatJSON, wantLevel: zapcore.InfoLevel},
		{name: "console debug", level: "debug", format: FormatConsole, wantLevel: zapcore.DebugLevel},
		{name: "uppercase level", level: "WARN", format: "", wantLevel: zapcore.WarnLevel},
		{name: "default level", level: "", format: "", wantLevel: zapcore.InfoLevel},
		{name: "invalid level", level: "loud", format: FormatJSON, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
		})
	}
}

func TestForRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	var handled bool
	h := chimiddleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ForRequest(base, r).Info("hello")
		handled = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, handled)
	require.Equal(t, 1, logs.Len())
	assert.NotEmpty(t, logs.All()[0].ContextMap()["request_id"])

	t.Run("without request id", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		ForRequest(zap.New(core), httptest.NewRequest(http.MethodGet, "/", nil)).Info("plain")
		require.Equal(t, 1, logs.Len())
		_, ok := logs.All()[0].ContextMap()["request_id"]
		assert.False(t, ok)
	})
}
