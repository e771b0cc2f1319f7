package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestLoadFrom_MissingFileReturnsDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg, err := LoadFrom(fs, "/home/nobody/.config/pipex/config.yaml")
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if len(cfg.PathPrepend) != 0 || cfg.Cwd != "" {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestLoadFrom_ParsesYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/user/.config/pipex/config.yaml"
	body := "path_prepend:\n  - /opt/tools/bin\ncwd: /srv/app\nenv:\n  DEMO: '1'\n"
	if err := afero.WriteFile(fs, path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadFrom(fs, path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if len(cfg.PathPrepend) != 1 || cfg.PathPrepend[0] != "/opt/tools/bin" {
		t.Fatalf("unexpected PathPrepend: %v", cfg.PathPrepend)
	}
	if cfg.Cwd != "/srv/app" {
		t.Fatalf("unexpected Cwd: %q", cfg.Cwd)
	}
	if cfg.Env["DEMO"] != "1" {
		t.Fatalf("unexpected Env: %v", cfg.Env)
	}
}

func TestResolvedEnv_PrependsPath(t *testing.T) {
	c := &Config{PathPrepend: []string{"/a", "/b"}}
	env := c.ResolvedEnv()
	sep := string(os.PathListSeparator)
	if !strings.HasPrefix(env["PATH"], "/a"+sep+"/b"+sep) {
		t.Fatalf("expected PATH to start with /a and /b, got %q", env["PATH"])
	}
}
