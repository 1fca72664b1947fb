package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/collection"
	pkgconfig "github.com/starford/folio/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestLibraryConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.Library.ListPolicy() != collection.SkipInvalid {
		t.Errorf("policy = %v, want skip-invalid", cfg.Library.ListPolicy())
	}
}

func TestLibraryConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LibraryConfig
		wantErr bool
	}{
		{"empty policy defaults", LibraryConfig{Path: "lib"}, false},
		{"fail fast", LibraryConfig{Path: "lib", CodexListPolicy: ListPolicyFailFast}, false},
		{"missing path", LibraryConfig{}, true},
		{"unknown policy", LibraryConfig{Path: "lib", CodexListPolicy: "lenient"}, true},
		{"negative window", LibraryConfig{Path: "lib", RecentWindow: -time.Hour}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("FOLIO_TEST_TOKEN", "s3cret")
	file := filepath.Join(t.TempDir(), "config.yaml")
	data := `app:
  log_level: debug
  log:
    file: folio.log
    max_size_mb: 5
  http:
    port: 9090
library:
  path: /srv/library
  recent_window: 72h
  codex_list_policy: fail-fast
sqlite:
  path: /srv/folio.db
auth:
  mode: token
  token: ${FOLIO_TEST_TOKEN}
`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(file, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.App.Log.MaxSizeMB != 5 || cfg.App.Log.MaxBackups != 3 {
		t.Errorf("log = %+v", cfg.App.Log)
	}
	if cfg.Library.RecentWindow != 72*time.Hour || cfg.Library.ListPolicy() != collection.FailFast {
		t.Errorf("library = %+v", cfg.Library)
	}
	if cfg.Library.ProjectsDir != "Projects" {
		t.Errorf("projects_dir = %q, want default kept", cfg.Library.ProjectsDir)
	}
	if !cfg.Auth.AuthEnabled() || cfg.Auth.Token != "s3cret" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
}
