// Package conf implements drop-in configuration file support for slimbuild.
//
// # Usage
//
// The global Configuration variable is automatically loaded at package initialization:
//
//	import "github.com/slimbuild/slimbuild/internal/conf"
//
//	func main() {
//	    fmt.Println(conf.Configuration.Manifest)
//	}
//
// For custom configuration loading (e.g., testing), use ConfigSource:
//
//	cs := &conf.ConfigSource{
//	    Path:      "/custom/path/config.toml",
//	    DropInDir: "/custom/path/config.toml.d",
//	}
//	config, err := cs.Read()
//
// # Load Order
//
// Config is loaded and applied in three layers:
//
//  1. Embedded defaults (default.toml)
//  2. Main config file: /etc/slimbuild/config.toml
//  3. Drop-in files: /etc/slimbuild/config.toml.d/*.toml, in lexicographic order
//
// Command line flags are applied on top by the caller.
//
// # Keys
//
//	log-level       DEBUG, INFO, WARN or ERROR
//	log-target      stderr or journal
//	manifest        path of the Cargo manifest
//	toolchain       rustup channel used for build-std builds
//	upx-args        arguments passed to upx before the executable path
//	profile-section section header receiving the release settings
//
// # Internal Architecture
//
// configDTO has pointer fields so an absent key (nil) is distinguished from a
// key set to its zero value; Config.Update copies only the keys that were set.
package conf
