package llm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("load from valid file", func(t *testing.T) {
		content := `
base_url: "https://api.deepseek.com"
api_key: "test-api-key"
default_model: "deepseek-chat"
timeout: "30s"
max_retries: 2
log_level: "info"

models:
  deepseek-chat:
    model_name: "deepseek-chat"
    temperature: 0.7
  deepseek-reasoner:
    model_name: "deepseek-reasoner"
    max_tokens: 4096
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		err := os.WriteFile(configPath, []byte(content), 0644)
		require.NoError(t, err)

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		require.Equal(t, "https://api.deepseek.com", cfg.BaseURL)
		require.Equal(t, "test-api-key", cfg.APIKey)
		require.Equal(t, "deepseek-chat", cfg.DefaultModel)
		require.Equal(t, 30*time.Second, cfg.Timeout)
		require.Equal(t, 2, cfg.MaxRetries)

		model, ok := cfg.Model("deepseek-chat")
		require.True(t, ok)
		require.NotNil(t, model.Temperature)
		require.InDelta(t, 0.7, *model.Temperature, 0.0001)

		reasoner, ok := cfg.Model("deepseek-reasoner")
		require.True(t, ok)
		require.NotNil(t, reasoner.MaxTokens)
		require.Equal(t, 4096, *reasoner.MaxTokens)
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		require.Error(t, err)
		require.Contains(t, err.Error(), "open llm config")
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(`api_key: "k"`))
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, cfg.BaseURL)
	require.Equal(t, defaultModel, cfg.DefaultModel)
	require.Equal(t, defaultTimeout, cfg.Timeout)
	require.Equal(t, defaultMaxRetries, cfg.MaxRetries)
	require.Equal(t, defaultLogLevel, cfg.LogLevel)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(envAPIKey, "env-key")
	t.Setenv(envBaseURL, "https://proxy.internal")
	t.Setenv(envModel, "deepseek-reasoner")
	t.Setenv(envTimeout, "45s")
	t.Setenv(envMaxRetries, "5")

	cfg, err := LoadConfigFromReader(strings.NewReader(`
base_url: "https://api.deepseek.com"
api_key: "${DEEPSEEK_API_KEY}"
default_model: "deepseek-chat"
timeout: "30s"
max_retries: 2
`))
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.APIKey)
	require.Equal(t, "https://proxy.internal", cfg.BaseURL)
	require.Equal(t, "deepseek-reasoner", cfg.DefaultModel)
	require.Equal(t, 45*time.Second, cfg.Timeout)
	require.Equal(t, 5, cfg.MaxRetries)
}

func TestLoadConfigInvalidTimeout(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader(`
api_key: "k"
timeout: "soon"
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid timeout")
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BaseURL:      "https://api.deepseek.com",
			APIKey:       "k",
			DefaultModel: "deepseek-chat",
			Timeout:      time.Minute,
			MaxRetries:   1,
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.APIKey = "  "
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.BaseURL = ""
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.DefaultModel = ""
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Timeout = 0
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.MaxRetries = -1
	require.Error(t, cfg.Validate())
}

func TestConfigClone(t *testing.T) {
	temp := 0.5
	cfg := &Config{
		BaseURL:      "https://api.deepseek.com",
		APIKey:       "k",
		DefaultModel: "deepseek-chat",
		Timeout:      time.Minute,
		Models: map[string]ModelConfig{
			"deepseek-chat": {ModelName: "deepseek-chat", Temperature: &temp},
		},
	}

	clone := cfg.Clone()
	clone.Models["deepseek-chat"] = ModelConfig{ModelName: "other"}
	require.Equal(t, "deepseek-chat", cfg.Models["deepseek-chat"].ModelName)
}
