package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"

	"wheelhouse/internal/config"
)

var (
	rootLong = templates.LongDesc(`
		wheelhouse drives the Ray wheel packaging pipeline: it prepares the
		build environment, invokes the manylinux wheel build for the selected
		interpreter versions, stages the artefacts and optionally publishes
		the matching ones to object storage.

		Configuration is layered, later sources winning: built-in defaults, a
		TOML file, WHEELHOUSE_ prefixed environment variables, and finally
		the contract variables exported by CI (CUSTOM_PYTHON_VERSION,
		BUILD_VERSION, CUSTOM_RAY_UPLOAD_TOS, BAZEL_LIMIT_CPUS).`)

	rootExamples = templates.Examples(`
		# Build wheels for the default interpreter set
		wheelhouse build

		# Build for a single interpreter and publish the result as v1.13.0
		CUSTOM_PYTHON_VERSION=cp38-cp38 BUILD_VERSION=v1.13.0 \
			CUSTOM_RAY_UPLOAD_TOS=1 wheelhouse build

		# Serve the build submission API
		wheelhouse serve --addr :8080`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// WheelhouseOptions defines the options for the `wheelhouse` command.
type WheelhouseOptions struct {
	ConfigPath string
	LogLevel   string
	LogFile    string

	iooption.IOStreams
}

// NewWheelhouseOptions provides an initialised WheelhouseOptions instance.
func NewWheelhouseOptions(streams iooption.IOStreams) *WheelhouseOptions {
	return &WheelhouseOptions{
		IOStreams: streams,
	}
}

// loadConfig builds the effective configuration with the root logging flags
// applied on top.
func (o *WheelhouseOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}
	return cfg, nil
}

// NewRootCommand creates the `wheelhouse` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewWheelhouseOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `wheelhouse` command and its nested
// children.
func NewRootCommandWithArgs(o *WheelhouseOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "wheelhouse [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Ray wheel packaging pipeline",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	pflags := cmd.PersistentFlags()
	pflags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to a TOML configuration file")
	pflags.StringVar(&o.LogLevel, "log-level", "", "Minimum log level: debug, info, warn or error")
	pflags.StringVar(&o.LogFile, "log-file", "", "Write a rotated JSON log to this file in addition to stderr")

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	cmd.AddCommand(NewBuildCommand(NewBuildOptions(o)))
	cmd.AddCommand(NewPublishCommand(NewPublishOptions(o)))
	cmd.AddCommand(NewServeCommand(NewServeOptions(o)))

	// The global normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
