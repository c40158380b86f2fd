package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig_DefaultValues проверяет загрузку значений по умолчанию
func TestLoadConfig_DefaultValues(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 3000, config.Server.Port)
	assert.Equal(t, "dev", config.Environment)
	assert.Equal(t, "/lk", config.Session.DashboardPrefix)
	assert.Equal(t, "/lk/login", config.Session.LoginPath)
	assert.Equal(t, "accesstokenkey", config.Session.HandoffCookie)
	assert.Equal(t, 5, config.Autosave.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, MustDuration(config.Autosave.ValidateDelay))
	assert.Equal(t, 1500*time.Millisecond, MustDuration(config.Autosave.SaveDelay))
	assert.False(t, config.Redis.Enabled)
}

// TestLoadConfig_FileOverride проверяет переопределение значений из файла конфигурации
func TestLoadConfig_FileOverride(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `server:
  host: "127.0.0.1"
  port: 9090
api:
  base_url: "http://api.internal/api/v1/"
  timeout: "3s"
logger:
  level: "debug"
environment: "prod"
`
	require.NoError(t, os.WriteFile(tempFile, []byte(configContent), 0644))

	config, err := LoadConfig(tempFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "http://api.internal/api/v1/", config.API.BaseURL)
	assert.Equal(t, "debug", config.Logger.Level)
	assert.Equal(t, "prod", config.Environment)
	// Не указанные в файле значения остаются по умолчанию
	assert.Equal(t, "/lk/register", config.Session.RegisterPath)
}

// TestLoadConfig_EnvOverride проверяет приоритет переменных окружения над файлом
func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "8181")
	t.Setenv("API_BASE_URL", "https://staging.bilee.ru/api/v1/")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("ENVIRONMENT", "staging")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8181, config.Server.Port)
	assert.Equal(t, "https://staging.bilee.ru/api/v1/", config.API.BaseURL)
	assert.True(t, config.Redis.Enabled)
	assert.Equal(t, "staging", config.Environment)
}

// TestLoadConfig_Invalid проверяет ошибки валидации
func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "неизвестное окружение", env: map[string]string{"ENVIRONMENT": "qa"}},
		{name: "нечисловой порт", env: map[string]string{"SERVER_PORT": "abc"}},
		{name: "порт вне диапазона", env: map[string]string{"SERVER_PORT": "70000"}},
		{name: "относительный base url", env: map[string]string{"API_BASE_URL": "/api/v1"}},
		{name: "ftp base url", env: map[string]string{"API_BASE_URL": "ftp://bilee.ru/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

// TestLoadConfig_MissingFile проверяет ошибку для несуществующего файла
func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestSave проверяет сохранение и повторную загрузку конфигурации
func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := Default()
	config.Server.Port = 4000

	require.NoError(t, config.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, loaded.Server.Port)
}
