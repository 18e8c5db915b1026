package conf

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/slimbuild/slimbuild/internal/logging"
)

// Helper functions for creating pointer values in DTO tests
func stringPtr(s string) *string { return &s }

func stringsPtr(s ...string) *[]string { return &s }

func TestConfig_Update(t *testing.T) {
	tests := []struct {
		name     string
		base     Config
		overlay  configDTO
		expected Config
	}{
		{
			name: "overlay replaces values",
			base: Config{
				Manifest: "Cargo.toml",
				LogLevel: slog.LevelInfo,
			},
			overlay: configDTO{
				Manifest: stringPtr("crates/app/Cargo.toml"),
				LogLevel: stringPtr("DEBUG"),
			},
			expected: Config{
				Manifest: "crates/app/Cargo.toml",
				LogLevel: slog.LevelDebug,
			},
		},
		{
			name: "overlay partial update",
			base: Config{
				Manifest:  "Cargo.toml",
				Toolchain: "nightly",
				LogLevel:  slog.LevelInfo,
			},
			overlay: configDTO{
				Toolchain: stringPtr("nightly-2024-06-01"),
			},
			expected: Config{
				Manifest:  "Cargo.toml",
				Toolchain: "nightly-2024-06-01",
				LogLevel:  slog.LevelInfo,
			},
		},
		{
			name: "empty overlay does nothing",
			base: Config{
				UPXArgs:  []string{"--best"},
				LogLevel: slog.LevelWarn,
			},
			overlay: configDTO{},
			expected: Config{
				UPXArgs:  []string{"--best"},
				LogLevel: slog.LevelWarn,
			},
		},
		{
			name: "empty upx arguments",
			base: Config{
				UPXArgs: []string{"--best", "--lzma"},
			},
			overlay: configDTO{
				UPXArgs: stringsPtr(),
			},
			expected: Config{},
		},
		{
			name: "unknown values are ignored",
			base: Config{
				LogLevel:  slog.LevelInfo,
				LogTarget: logging.TargetStderr,
			},
			overlay: configDTO{
				LogLevel:  stringPtr("TRACE"),
				LogTarget: stringPtr("syslog"),
			},
			expected: Config{
				LogLevel:  slog.LevelInfo,
				LogTarget: logging.TargetStderr,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.base
			result.Update(tt.overlay)
			if diff := cmp.Diff(tt.expected, result); diff != "" {
				t.Errorf("Update() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigSource_ReadFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		fileContent string
		setupFile   bool
		expectError bool
		expected    Config
	}{
		{
			name: "valid config file",
			fileContent: `log-level = "DEBUG"
log-target = "journal"
manifest = "app/Cargo.toml"
upx-args = ["-9"]
`,
			setupFile: true,
			expected: Config{
				LogLevel:       slog.LevelDebug,
				LogTarget:      logging.TargetJournal,
				Manifest:       "app/Cargo.toml",
				Toolchain:      "nightly",
				UPXArgs:        []string{"-9"},
				ProfileSection: "[profile.release]",
			},
		},
		{
			name:      "missing file uses defaults",
			setupFile: false,
			expected:  Defaults(),
		},
		{
			name:        "malformed file fails",
			fileContent: "manifest = ",
			setupFile:   true,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testFile := filepath.Join(tmpDir, "test-"+tt.name+".toml")

			if tt.setupFile {
				if err := os.WriteFile(testFile, []byte(tt.fileContent), 0644); err != nil {
					t.Fatalf("failed to write test file: %v", err)
				}
			}

			source := &ConfigSource{Path: testFile, DropInDir: filepath.Join(tmpDir, "nonexistent")}
			result, err := source.Read()

			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.expectError {
				if diff := cmp.Diff(tt.expected, result); diff != "" {
					t.Errorf("Read() mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestParseConfigDTO(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		expected    configDTO
	}{
		{
			name: "valid TOML string",
			input: `
toolchain = "nightly"
upx-args = ["--ultra-brute"]
`,
			expected: configDTO{
				Toolchain: stringPtr("nightly"),
				UPXArgs:   stringsPtr("--ultra-brute"),
			},
		},
		{
			name:     "empty string",
			input:    "",
			expected: configDTO{},
		},
		{
			name:        "invalid TOML",
			input:       "not valid toml ===",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseConfigDTO(tt.input)

			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.expectError {
				if diff := cmp.Diff(tt.expected, result); diff != "" {
					t.Errorf("parseConfigDTO() mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestConfigSource_FullStack(t *testing.T) {
	tmpDir := t.TempDir()
	mainConfigPath := filepath.Join(tmpDir, "config.toml")
	dropinDir := filepath.Join(tmpDir, "config.toml.d")

	if err := os.Mkdir(dropinDir, 0755); err != nil {
		t.Fatalf("failed to create drop-in directory: %v", err)
	}

	t.Run("full configuration stack", func(t *testing.T) {
		mainConfig := `
manifest = "Cargo.toml"
log-level = "INFO"
toolchain = "nightly-2024-06-01"
`
		if err := os.WriteFile(mainConfigPath, []byte(mainConfig), 0644); err != nil {
			t.Fatalf("failed to write main config: %v", err)
		}

		// Loaded in lexicographic order.
		dropinFiles := map[string]string{
			"10-upx.toml":      `upx-args = ["--best"]`,
			"20-debug.toml":    `log-level = "DEBUG"`,
			"30-channel.toml":  `toolchain = "nightly"`,
			"README.md":        `toolchain = "ignored"`,
			"40-profile.toml":  `profile-section = "[profile.min]"`,
			"50-journal.toml":  `log-target = "journal"`,
			"60-manifest.toml": `manifest = "app/Cargo.toml"`,
		}

		for filename, content := range dropinFiles {
			path := filepath.Join(dropinDir, filename)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write drop-in file %s: %v", filename, err)
			}
		}

		cs := &ConfigSource{Path: mainConfigPath, DropInDir: dropinDir}
		config, err := cs.Read()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := Config{
			LogLevel:       slog.LevelDebug,
			LogTarget:      logging.TargetJournal,
			Manifest:       "app/Cargo.toml",
			Toolchain:      "nightly",
			UPXArgs:        []string{"--best"},
			ProfileSection: "[profile.min]",
		}
		if diff := cmp.Diff(expected, config); diff != "" {
			t.Errorf("Read() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("drop-in shadowing", func(t *testing.T) {
		tmpDir2 := t.TempDir()
		mainPath2 := filepath.Join(tmpDir2, "config.toml")
		dropinDir2 := filepath.Join(tmpDir2, "config.toml.d")
		os.Mkdir(dropinDir2, 0755)

		os.WriteFile(mainPath2, []byte(`log-level = "INFO"`), 0644)
		os.WriteFile(filepath.Join(dropinDir2, "10-first.toml"), []byte(`log-level = "WARN"`), 0644)
		os.WriteFile(filepath.Join(dropinDir2, "20-second.toml"), []byte(`log-level = "DEBUG"`), 0644)

		cs := &ConfigSource{Path: mainPath2, DropInDir: dropinDir2}
		config, err := cs.Read()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.LogLevel != slog.LevelDebug {
			t.Errorf("expected LogLevel=DEBUG, got %v", config.LogLevel)
		}
	})
}

// TestMissingKeysInDropin checks that keys absent from a drop-in keep the
// values of earlier layers.
func TestMissingKeysInDropin(t *testing.T) {
	tmpDir := t.TempDir()
	mainConfigPath := filepath.Join(tmpDir, "config.toml")
	dropinDir := filepath.Join(tmpDir, "config.toml.d")
	os.Mkdir(dropinDir, 0755)

	mainConfig := `
manifest = "crates/app/Cargo.toml"
toolchain = "nightly-2024-06-01"
upx-args = ["-9"]
`
	os.WriteFile(mainConfigPath, []byte(mainConfig), 0644)
	os.WriteFile(filepath.Join(dropinDir, "10-debug.toml"), []byte(`log-level = "DEBUG"`), 0644)

	cs := &ConfigSource{Path: mainConfigPath, DropInDir: dropinDir}
	config, err := cs.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Manifest != "crates/app/Cargo.toml" {
		t.Errorf("expected Manifest=crates/app/Cargo.toml (preserved!), got %s", config.Manifest)
	}
	if config.Toolchain != "nightly-2024-06-01" {
		t.Errorf("expected Toolchain=nightly-2024-06-01 (preserved!), got %s", config.Toolchain)
	}
	if diff := cmp.Diff([]string{"-9"}, config.UPXArgs); diff != "" {
		t.Errorf("UPXArgs mismatch (-want +got):\n%s", diff)
	}
	if config.LogLevel != slog.LevelDebug {
		t.Errorf("expected LogLevel=DEBUG (overridden), got %v", config.LogLevel)
	}
}

func TestConfigSource_MissingDropinDir(t *testing.T) {
	tmpDir := t.TempDir()
	mainConfigPath := filepath.Join(tmpDir, "config.toml")
	dropinDir := filepath.Join(tmpDir, "config.toml.d") // doesn't exist

	if err := os.WriteFile(mainConfigPath, []byte(`log-level = "WARN"`), 0644); err != nil {
		t.Fatalf("failed to write main config: %v", err)
	}

	cs := &ConfigSource{Path: mainConfigPath, DropInDir: dropinDir}
	config, err := cs.Read()
	if err != nil {
		t.Fatalf("unexpected error when drop-in dir missing: %v", err)
	}

	if config.LogLevel != slog.LevelWarn {
		t.Errorf("expected LogLevel=WARN, got %v", config.LogLevel)
	}
}

func TestEmbeddedDefault(t *testing.T) {
	dto, err := parseConfigDTO(defaultConfig)
	if err != nil {
		t.Fatalf("embedded default config is invalid: %v", err)
	}

	config := Config{}
	config.Update(dto)

	expected := Config{
		LogLevel:       slog.LevelInfo,
		LogTarget:      logging.TargetStderr,
		Manifest:       "Cargo.toml",
		Toolchain:      "nightly",
		UPXArgs:        []string{"--best", "--lzma"},
		ProfileSection: "[profile.release]",
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}
