package conf

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/slimbuild/slimbuild/internal/logging"
)

func init() {
	sources := &ConfigSource{
		Path:      "/etc/slimbuild/config.toml",
		DropInDir: "/etc/slimbuild/config.toml.d/",
	}
	config, err := sources.Read()
	if err != nil {
		slog.Warn("falling back to default configuration", "error", err)
		config = Defaults()
	}
	Configuration = config
}

// defaultConfig contains the embedded default configuration file.
// This file is compiled into the binary and serves as the base layer
// of configuration before /etc/slimbuild/config.toml and drop-in files are applied.
//
//go:embed default.toml
var defaultConfig string

// Configuration is the global immutable state.
var Configuration Config

// Config represents the immutable public configuration object.
type Config struct {
	LogLevel  slog.Level
	LogTarget logging.Target
	// Manifest is the path of the Cargo manifest, relative to the working
	// directory.
	Manifest string
	// Toolchain is the rustup channel used for build-std builds.
	Toolchain      string
	UPXArgs        []string
	ProfileSection string
}

// Defaults returns the configuration described by the embedded defaults.
func Defaults() Config {
	dto, err := parseConfigDTO(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded defaults: %v", err))
	}
	config := Config{}
	config.Update(dto)
	return config
}

// Update applies non-nil values from a configDTO.
func (c *Config) Update(dto configDTO) {
	if dto.LogLevel != nil {
		if level, err := logging.ParseLevel(*dto.LogLevel); err == nil {
			c.LogLevel = level
		}
	}
	if dto.LogTarget != nil {
		switch logging.Target(*dto.LogTarget) {
		case logging.TargetStderr, logging.TargetJournal:
			c.LogTarget = logging.Target(*dto.LogTarget)
		}
	}
	if dto.Manifest != nil {
		c.Manifest = *dto.Manifest
	}
	if dto.Toolchain != nil {
		c.Toolchain = *dto.Toolchain
	}
	if dto.UPXArgs != nil {
		c.UPXArgs = append([]string(nil), (*dto.UPXArgs)...)
	}
	if dto.ProfileSection != nil {
		c.ProfileSection = *dto.ProfileSection
	}
}

// ConfigSource orchestrates loading configuration from multiple sources.
// See the Read method.
type ConfigSource struct {
	Path      string
	DropInDir string
}

// Read loads and returns the complete Config by merging all layers:
// 1. Embedded defaults
// 2. Main configuration file
// 3. Drop-in files
func (cs *ConfigSource) Read() (Config, error) {
	resolved := Config{}

	dto, err := parseConfigDTO(defaultConfig)
	if err != nil {
		slog.Error("failed to parse embedded defaults", "error", err)
		return resolved, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}
	resolved.Update(dto)

	data, err := os.ReadFile(cs.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			return resolved, fmt.Errorf("failed to load %s: %w", cs.Path, err)
		}
	} else {
		mainDTO, err := parseConfigDTO(string(data))
		if err != nil {
			// A broken main file fails loudly instead of silently using defaults.
			return resolved, fmt.Errorf("failed to parse %s: %w", cs.Path, err)
		}
		resolved.Update(mainDTO)
	}

	dropInDTOs, err := cs.parseDropInFiles()
	if err != nil {
		slog.Error("failed to load drop-in files", "error", err, "dir", cs.DropInDir)
		return resolved, err
	}
	for _, dropInDTO := range dropInDTOs {
		resolved.Update(dropInDTO)
	}

	return resolved, nil
}

type configDTO struct {
	LogLevel       *string   `toml:"log-level"`
	LogTarget      *string   `toml:"log-target"`
	Manifest       *string   `toml:"manifest"`
	Toolchain      *string   `toml:"toolchain"`
	UPXArgs        *[]string `toml:"upx-args"`
	ProfileSection *string   `toml:"profile-section"`
}

// parseConfigDTO parses a TOML string into a configDTO.
func parseConfigDTO(data string) (configDTO, error) {
	var dto configDTO

	if err := toml.Unmarshal([]byte(data), &dto); err != nil {
		return dto, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return dto, nil
}

// findDropInFiles returns the sorted .toml files of the drop-in directory, or
// nil when the directory does not exist.
func (cs *ConfigSource) findDropInFiles() ([]string, error) {
	if _, err := os.Stat(cs.DropInDir); os.IsNotExist(err) {
		return nil, nil
	}

	entries, err := os.ReadDir(cs.DropInDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read drop-in directory %s: %w", cs.DropInDir, err)
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".toml") {
			filenames = append(filenames, filepath.Join(cs.DropInDir, entry.Name()))
		}
	}
	sort.Strings(filenames)

	return filenames, nil
}

// parseDropInFiles loads .toml files.
func (cs *ConfigSource) parseDropInFiles() ([]configDTO, error) {
	paths, err := cs.findDropInFiles()
	if err != nil {
		return nil, err
	}

	var dtos []configDTO
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		dto, err := parseConfigDTO(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		dtos = append(dtos, dto)
	}

	return dtos, nil
}
