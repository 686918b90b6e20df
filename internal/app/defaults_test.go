package app

import (
	"os"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("LVC_ROOT", "/custom/project")
		t.Setenv("LVC_LOG_LEVEL", "debug")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["start_dir"] != "/custom/project" {
			t.Errorf("start_dir = %q, want %q", defaults["start_dir"], "/custom/project")
		}
		if defaults["log_level"] != "debug" {
			t.Errorf("log_level = %q, want %q", defaults["log_level"], "debug")
		}
	})

	t.Run("falls back to working directory", func(t *testing.T) {
		t.Setenv("LVC_ROOT", "")
		t.Setenv("LVC_LOG_LEVEL", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		wd, _ := os.Getwd()
		if defaults["start_dir"] != wd {
			t.Errorf("start_dir = %q, want %q", defaults["start_dir"], wd)
		}
		if defaults["log_level"] != "" {
			t.Errorf("log_level = %q, want empty", defaults["log_level"])
		}
	})
}
