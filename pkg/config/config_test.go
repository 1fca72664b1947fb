package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	s.valid = true
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "folio")
	p := writeFile(t, "name: ${SAMPLE_NAME}\n")

	s := sample{Port: 8080}
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "folio" || s.Port != 8080 || !s.valid {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	p := writeFile(t, "port: -1\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeFile(t, "port: [unterminated\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	s := sample{Port: 1}
	read, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	if err != nil || read {
		t.Fatalf("read = %v, err = %v", read, err)
	}
	if !s.valid {
		t.Error("defaults were not validated")
	}

	var bad sample
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &bad); err == nil {
		t.Error("invalid defaults should fail")
	}
}

func TestLoadOptional_ExistingFile(t *testing.T) {
	p := writeFile(t, "port: 9000\n")
	var s sample
	read, err := LoadOptional(p, &s)
	if err != nil || !read || s.Port != 9000 {
		t.Fatalf("read = %v, err = %v, s = %+v", read, err, s)
	}
}
