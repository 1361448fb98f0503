// Package config builds the effective pipeline configuration from layered
// sources: built-in defaults, an optional TOML file, a .env file, prefixed
// environment variables, and finally the exact contract variables the CI
// pipeline has always exported.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	homedir "github.com/mitchellh/go-homedir"
)

type Config struct {
	// Profile names the active entry in the Profiles table.
	Profile string

	Build  Build
	Upload Upload
	Server Server
	Log    Log

	Profiles map[string]Profile
}

type Build struct {
	// WorkDir is the directory external tools run in. Relative script,
	// artefact and output paths resolve against it.
	WorkDir string

	// SetupScript is an optional environment preparation script run before
	// the build. Empty skips preparation.
	SetupScript string

	// Script is the wheel-build script. It receives the selected interpreter
	// tags in PYTHON_VERSIONS and is expected to populate ArtefactDir.
	Script string

	// ArtefactDir is where the build script drops finished wheels.
	ArtefactDir string

	// PythonVersions overrides the default interpreter tag list when set.
	// Populated from CUSTOM_PYTHON_VERSION.
	PythonVersions string

	// BazelLimitCPUs passes through to the build tool when set.
	BazelLimitCPUs string

	// LubanVersion passes through to the preparation step when set.
	// Populated from LUBAN_SPECFIC_VERSION.
	LubanVersion string

	// Timeout bounds the setup and build scripts. Zero means unbounded.
	Timeout time.Duration
}

type Upload struct {
	// Backend selects the storage implementation: toscli, gcs, disk or none.
	Backend string

	Bucket string

	// BuildVersion prefixes remote object keys. When empty, publishing is
	// skipped entirely. Populated from BUILD_VERSION.
	BuildVersion string

	// Enabled gates publishing. Populated from CUSTOM_RAY_UPLOAD_TOS.
	Enabled bool

	// PlatformSuffix limits publishing to artefacts whose filename ends
	// with it.
	PlatformSuffix string

	// Concurrency bounds parallel uploads. 1 preserves the sequential
	// upload order of the original pipeline.
	Concurrency int

	// Timeout bounds each individual upload. Zero means unbounded.
	Timeout time.Duration

	// TOSBinary is the upload CLI executed by the toscli backend.
	TOSBinary string

	// AccessKey credentials the toscli backend. It is read from the
	// environment (TOS_ACCESS_KEY) and cannot be set in the config file.
	AccessKey string `toml:"-" json:"-"`

	// GCSCredentialsFile points the gcs backend at a service account key
	// file. Empty uses application default credentials.
	GCSCredentialsFile string

	// DiskRoot is the destination directory for the disk backend.
	DiskRoot string
}

type Server struct {
	// ListenAddress is the bind address for the build submission API.
	ListenAddress string

	// QueueSize bounds how many submitted runs may wait for the worker.
	// Submissions beyond it are rejected rather than queued without bound.
	QueueSize int

	// LogDir receives one tool log per run.
	LogDir string
}

type Log struct {
	// Level is the minimum level emitted: debug, info, warn or error.
	Level string

	// File enables an additional rotated JSON log when set.
	File string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Profile describes one variant of the pipeline. The default profile stages
// into output/; the luban profile stages into dist/ and may carry extra
// preparation environment.
type Profile struct {
	// OutputDir receives the staged artefacts.
	OutputDir string

	// PrepareEnv is extra environment for the preparation step.
	PrepareEnv map[string]string
}

func Default() *Config {
	return &Config{
		Profile: "default",
		Build: Build{
			WorkDir:     ".",
			Script:      "python/build-wheel-manylinux2014.sh",
			ArtefactDir: ".whl",
		},
		Upload: Upload{
			Backend:        "toscli",
			Bucket:         "ray-wheels",
			PlatformSuffix: "x86_64.whl",
			Concurrency:    1,
			TOSBinary:      "toscli",
			DiskRoot:       "uploads",
		},
		Server: Server{
			ListenAddress: ":8080",
			QueueSize:     16,
			LogDir:        "logs",
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Profiles: map[string]Profile{
			"default": {OutputDir: "output"},
			"luban":   {OutputDir: "dist"},
		},
	}
}

// Load builds the effective configuration. Later layers win: defaults, then
// the TOML file at path (skipped when path is empty), then WHEELHOUSE_
// environment variables, then the pipeline contract variables.
func Load(path string) (*Config, error) {
	// A .env file is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to expand %q: %w", path, err)
		}
		if _, err := toml.DecodeFile(expanded, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to decode %q: %w", path, err)
		}
	}

	if err := envconfig.Process("WHEELHOUSE", cfg); err != nil {
		return nil, fmt.Errorf("config: failed to process environment: %w", err)
	}

	applyPipelineEnv(cfg)

	if err := expandPaths(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyPipelineEnv reads the contract variables CI has always exported. The
// exact names are load-bearing; they are read without the WHEELHOUSE_ prefix
// and take precedence over the file.
func applyPipelineEnv(cfg *Config) {
	if v := os.Getenv("CUSTOM_PYTHON_VERSION"); v != "" {
		cfg.Build.PythonVersions = v
	}
	if v := os.Getenv("BUILD_VERSION"); v != "" {
		cfg.Upload.BuildVersion = v
	}
	if v := os.Getenv("CUSTOM_RAY_UPLOAD_TOS"); v != "" {
		cfg.Upload.Enabled = true
	}
	if v := os.Getenv("BAZEL_LIMIT_CPUS"); v != "" {
		cfg.Build.BazelLimitCPUs = v
	}
	// LUBAN_SPECFIC_VERSION is spelled exactly as upstream CI exports it.
	if v := os.Getenv("LUBAN_SPECFIC_VERSION"); v != "" {
		cfg.Build.LubanVersion = v
	}
	if v := os.Getenv("TOS_ACCESS_KEY"); v != "" {
		cfg.Upload.AccessKey = v
	}
}

func expandPaths(cfg *Config) error {
	for _, p := range []*string{
		&cfg.Build.WorkDir,
		&cfg.Build.SetupScript,
		&cfg.Upload.GCSCredentialsFile,
		&cfg.Upload.DiskRoot,
		&cfg.Server.LogDir,
		&cfg.Log.File,
	} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("config: failed to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks invariants that would otherwise surface as confusing
// failures mid-run.
func (c *Config) Validate() error {
	switch c.Upload.Backend {
	case "toscli", "gcs", "disk", "none":
	default:
		return fmt.Errorf("config: unknown upload backend %q", c.Upload.Backend)
	}
	if c.Upload.Concurrency < 1 {
		return fmt.Errorf("config: upload concurrency must be at least 1, got %d", c.Upload.Concurrency)
	}
	if c.Server.QueueSize < 1 {
		return fmt.Errorf("config: server queue size must be at least 1, got %d", c.Server.QueueSize)
	}
	if c.Build.Script == "" {
		return fmt.Errorf("config: build script must not be empty")
	}
	if _, err := c.ActiveProfile(); err != nil {
		return err
	}
	return nil
}

// ActiveProfile resolves the profile named by c.Profile.
func (c *Config) ActiveProfile() (Profile, error) {
	p, ok := c.Profiles[c.Profile]
	if !ok {
		return Profile{}, fmt.Errorf("config: unknown profile %q", c.Profile)
	}
	return p, nil
}
