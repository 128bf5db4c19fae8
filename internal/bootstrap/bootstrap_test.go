package bootstrap

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskup/taskup-client/config"
	"github.com/taskup/taskup-client/internal/adapters/filestore"
	"github.com/taskup/taskup-client/internal/adapters/memstore"
	"github.com/taskup/taskup-client/internal/api"
	"github.com/taskup/taskup-client/internal/locale"
	"github.com/taskup/taskup-client/internal/pagination"
	"github.com/taskup/taskup-client/internal/session"
	"github.com/taskup/taskup-client/internal/testutil"
)

func testConfig(baseURL string) config.AppConfig {
	cfg := config.AppConfig{
		API:     config.APIConfig{BaseURL: baseURL},
		Storage: config.StorageConfig{Backend: config.StorageBackendMemory},
	}
	cfg.Sanitize()
	return cfg
}

func TestInitLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := initLogger(&buf, config.AppConfig{Env: "staging", LogLevel: slog.LevelWarn})
	logger.Info("dropped")
	logger.Warn("kept", "k", "v")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
	assert.Contains(t, buf.String(), `"env":"staging"`)

	buf.Reset()
	initLogger(&buf, config.AppConfig{IsDev: true}).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TASKUP_API_BASE_URL", "https://api.taskup.no/")
	t.Setenv("LOCALE_DEFAULT", "sv_SE.UTF-8")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.taskup.no", cfg.API.BaseURL)
	assert.Equal(t, "sv", cfg.Locale.Default)
	assert.Equal(t, config.StorageBackendFile, cfg.Storage.Backend)
}

func TestNewStorage(t *testing.T) {
	ctx := context.Background()

	mem, err := NewStorage(ctx, config.StorageConfig{Backend: config.StorageBackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &memstore.Store{}, mem.KV)
	require.NoError(t, mem.Close())

	path := filepath.Join(t.TempDir(), "state.json")
	file, err := NewStorage(ctx, config.StorageConfig{Backend: config.StorageBackendFile, FilePath: path}, nil)
	require.NoError(t, err)
	fs, ok := file.KV.(*filestore.Store)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())

	_, err = NewStorage(ctx, config.StorageConfig{Backend: config.StorageBackendRedis}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a URI")
}

func TestNewStorage_Redis(t *testing.T) {
	addr, ok := testutil.GetTestRedisAddr(t)
	if !ok {
		t.Skip("redis not available")
	}
	st, err := NewStorage(context.Background(), config.StorageConfig{
		Backend: config.StorageBackendRedis,
		Redis:   config.RedisConfig{URI: addr, KeyPrefix: "taskup:bootstrap-test:"},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	require.NoError(t, st.KV.Set(ctx, "k", "v"))
	got, found, err := st.KV.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", got)
	require.NoError(t, st.KV.Delete(ctx, "k"))
}

func TestRedactAddr(t *testing.T) {
	redacted := redactAddr("redis://user:pw@cache:6379/0")
	assert.NotContains(t, redacted, "pw")
	assert.Contains(t, redacted, "cache:6379/0")
	assert.Equal(t, "cache:6379", redactAddr("pw@cache:6379"))
	assert.Equal(t, "localhost:6379", redactAddr("localhost:6379"))
}

func TestNewApp_EndToEnd(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.AddTask(map[string]any{"title": "Mow the lawn", "budget_min": 500})
	kv := memstore.New(nil)
	ctx := context.Background()

	app, err := NewApp(ctx, AppOptions{
		Config:      testConfig(fb.URL),
		Storage:     &Storage{KV: kv},
		Preferences: []string{"nb_NO.UTF-8"},
		Source:      "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Equal(t, locale.Norwegian, app.Locale.Active())
	assert.Equal(t, session.StatusAnonymous, app.Session.Restore(ctx).Status)

	_, err = app.API.ListTasks(ctx, pagination.Request{}, api.TaskFilter{})
	require.Error(t, err)

	res := app.Session.Login(ctx, testutil.FakeEmail, testutil.FakePassword)
	require.True(t, res.OK, res.Message)

	page, err := app.API.ListTasks(ctx, pagination.Request{}, api.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Mow the lawn", page.Items[0].Title)

	app.Flags.Refresh(ctx)
	assert.True(t, app.Flags.Enabled("new_checkout"))
	assert.Equal(t, "staging", app.Flags.Environment())

	token, ok, err := kv.Get(ctx, "taskup_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testutil.FakeToken, token)

	bad := app.Session.Login(ctx, testutil.FakeEmail, "wrong")
	assert.False(t, bad.OK)
	assert.NotEmpty(t, bad.Message)
}
