package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/cnpjsync/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLogger_ReplacesGlobal(t *testing.T) {
	cfg := &config.Config{
		ServiceName: "cnpjsync",
		Server:      config.ServerConfig{Env: "production"},
		Log:         config.LogConfig{Level: "debug"},
	}
	l, err := InitLogger(cfg)
	require.NoError(t, err)
	assert.Same(t, l, GetLogger())
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	cfg.Log.Level = "loud"
	_, err = InitLogger(cfg)
	assert.ErrorContains(t, err, "loud")
}

func TestFromContext(t *testing.T) {
	fallback := zap.NewNop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	scoped := zap.NewExample()
	ctx := WithContext(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx, fallback))
}

func TestMiddleware_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	e := echo.New()
	e.Use(Middleware(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/bad", func(c echo.Context) error { return c.NoContent(http.StatusBadRequest) })
	e.GET("/fail", func(c echo.Context) error { return c.NoContent(http.StatusBadGateway) })

	for _, path := range []string{"/ok", "/bad", "/fail"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "/fail", entries[2].ContextMap()["route"])
}

func TestFromEcho_UsesRequestLogger(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	fallback := zap.NewNop()
	assert.Same(t, fallback, FromEcho(c, fallback))

	scoped := zap.NewExample()
	c.Set(EchoKey, scoped)
	assert.Same(t, scoped, FromEcho(c, fallback))
}
