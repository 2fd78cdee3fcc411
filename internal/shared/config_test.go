package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.PocketBase.URL != "http://127.0.0.1:8090" {
			t.Errorf("expected pocketbase url http://127.0.0.1:8090, got %s", config.PocketBase.URL)
		}

		if config.PocketBase.AuthCollection != "_superusers" {
			t.Errorf("expected auth collection _superusers, got %s", config.PocketBase.AuthCollection)
		}

		if config.Seed.ModulesFile != "modules.json" {
			t.Errorf("expected modules file modules.json, got %s", config.Seed.ModulesFile)
		}

		if config.Database.Path != "./clseed.db" {
			t.Errorf("expected database path ./clseed.db, got %s", config.Database.Path)
		}

		if config.PocketBase.HasCredentials() {
			t.Error("default config should not carry credentials")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Seed.DataDir != DefaultConfig().Seed.DataDir {
			t.Errorf("created config data dir doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[pocketbase]
url = "https://latin.example.com"
email = "admin@example.com"
password = "secret"
timeout_seconds = 5

[seed]
data_dir = "/srv/fixtures"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.PocketBase.URL != "https://latin.example.com" {
			t.Errorf("expected url https://latin.example.com, got %s", config.PocketBase.URL)
		}
		if !config.PocketBase.HasCredentials() {
			t.Error("expected credentials to be set")
		}
		if config.PocketBase.Timeout() != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", config.PocketBase.Timeout())
		}
		if config.Seed.DataDir != "/srv/fixtures" {
			t.Errorf("expected data dir /srv/fixtures, got %s", config.Seed.DataDir)
		}
		if config.Seed.LessonsFile != "lessons.json" {
			t.Errorf("expected default lessons file to be kept, got %s", config.Seed.LessonsFile)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[pocketbase\nurl ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv(EnvPocketBaseURL, "http://pb.internal:8090")
		t.Setenv(EnvPocketBaseEmail, "ops@example.com")
		t.Setenv(EnvPocketBasePassword, "hunter2")
		t.Setenv(EnvDataDir, "")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.PocketBase.URL != "http://pb.internal:8090" {
			t.Errorf("expected env url, got %s", config.PocketBase.URL)
		}
		if config.PocketBase.Email != "ops@example.com" {
			t.Errorf("expected env email, got %s", config.PocketBase.Email)
		}
		if config.Seed.DataDir != "./data" {
			t.Errorf("empty env var should not override data dir, got %s", config.Seed.DataDir)
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("CLSEED_TEST_VALUE=from-dotenv\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("CLSEED_TEST_VALUE") })

		if err := LoadEnv(envPath); err != nil {
			t.Fatalf("failed to load env file: %v", err)
		}
		if got := os.Getenv("CLSEED_TEST_VALUE"); got != "from-dotenv" {
			t.Errorf("expected from-dotenv, got %q", got)
		}

		if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Errorf("missing env file should be ignored, got %v", err)
		}
	})

	t.Run("FixturePath", func(t *testing.T) {
		seed := SeedConfig{DataDir: "data"}

		if got := seed.FixturePath("modules.json"); got != filepath.Join("data", "modules.json") {
			t.Errorf("unexpected fixture path %s", got)
		}
		if got := seed.FixturePath("/abs/modules.json"); got != "/abs/modules.json" {
			t.Errorf("absolute path should be kept, got %s", got)
		}
	})
}
