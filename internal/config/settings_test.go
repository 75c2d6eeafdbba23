package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "settings.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.Timeout() != 50*time.Millisecond || settings.Loops() != 256 {
		t.Fatalf("unexpected defaults %+v", settings)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "settings.toml", `
timeout_ms = 200
loop_limit = 0
workers = 4
max_volume = 1000
history = "/tmp/hist"

[telemetry]
endpoint = "localhost:4317"
insecure = true
service_name = "wexpr-ci"
headers = { x-api-key = "secret" }
`)
	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.Timeout() != 200*time.Millisecond || settings.Loops() != 0 || settings.Workers != 4 || settings.MaxVolume != 1000 {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if settings.History != "/tmp/hist" {
		t.Fatalf("unexpected history %q", settings.History)
	}
	tel := settings.Telemetry
	if tel.Endpoint != "localhost:4317" || !tel.Insecure || tel.ServiceName != "wexpr-ci" || tel.Headers["x-api-key"] != "secret" {
		t.Fatalf("unexpected telemetry settings %+v", tel)
	}
}

func TestLoadYAML(t *testing.T) {
	content := "timeout_ms: 10\nworkers: 2\ntelemetry:\n  endpoint: collector:4317\n"
	for _, name := range []string{"settings.yaml", "settings.conf"} {
		t.Run(name, func(t *testing.T) {
			settings, err := Load(writeFile(t, name, content))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if settings.TimeoutMS != 10 || settings.Workers != 2 || settings.Telemetry.Endpoint != "collector:4317" {
				t.Fatalf("unexpected settings %+v", settings)
			}
			if settings.Loops() != DefaultLoopLimit {
				t.Fatalf("expected default loop limit, got %d", settings.Loops())
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "settings.toml", "timeout_ms = [\n"))
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), "toml:") || !strings.Contains(err.Error(), "yaml:") {
		t.Fatalf("expected both decoders to be reported, got %v", err)
	}

	if _, err := Load(writeFile(t, "settings.yml", "workers: -1\n")); err == nil {
		t.Fatalf("expected negative workers to be rejected")
	}
	if _, err := Decode([]byte("max_volume = -1"), SettingsFormatTOML); err == nil {
		t.Fatalf("expected negative max volume to be rejected")
	}
	if _, err := Decode([]byte("loop_limit = -3"), SettingsFormatTOML); err == nil {
		t.Fatalf("expected negative loop limit to be rejected")
	}
	if _, err := Decode(nil, "ini"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error reading a directory")
	}
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultPath(); got != filepath.Join("/xdg", "wexpr", "settings.toml") {
		t.Fatalf("unexpected default path %q", got)
	}
}
