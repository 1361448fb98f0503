package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"wheelhouse/internal/config"
	"wheelhouse/internal/logging"
	"wheelhouse/internal/pipeline"
	"wheelhouse/internal/run"
)

// BuildOptions defines the options for the `wheelhouse build` command.
type BuildOptions struct {
	root *WheelhouseOptions
	cfg  *config.Config

	Profile        string
	PythonVersions string
	OutputDir      string
	SkipUpload     bool
	DryRun         bool
	Timeout        time.Duration

	iooption.IOStreams
}

var (
	buildLong = templates.LongDesc(`
		Run the full packaging pipeline: prepare the build environment,
		invoke the wheel-build script for each selected interpreter version,
		stage the artefacts into the profile's output directory and publish
		the matching ones.

		Publishing only happens when a build version is set and the upload
		gate is on; otherwise the built wheels simply stay staged.`)

	buildExamples = templates.Examples(`
		# Build with the default profile
		wheelhouse build

		# Build the luban variant into a custom directory
		wheelhouse build --profile luban --output-dir /data/dist

		# Build a single interpreter without publishing anything
		wheelhouse build --python-versions cp39-cp39 --skip-upload`)
)

func NewBuildOptions(root *WheelhouseOptions) *BuildOptions {
	return &BuildOptions{
		root:      root,
		IOStreams: root.IOStreams,
	}
}

func NewBuildCommand(o *BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "build",
		DisableFlagsInUseLine: true,
		Short:                 "Build, stage and optionally publish Ray wheels",
		Long:                  buildLong,
		Example:               buildExamples,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.Profile, "profile", "", "Pipeline profile to build")
	flags.StringVar(&o.PythonVersions, "python-versions", "", "Interpreter tag list, overriding the default set")
	flags.StringVarP(&o.OutputDir, "output-dir", "o", "", "Stage artefacts into this directory instead of the profile's")
	flags.BoolVar(&o.SkipUpload, "skip-upload", false, "Never publish, regardless of the upload gate")
	flags.BoolVar(&o.DryRun, "dry-run", false, "Run the pipeline but simulate uploads")
	flags.DurationVarP(&o.Timeout, "timeout", "t", 0, "Bound each external tool invocation")

	return cmd
}

// Complete layers the command line flags over the loaded configuration.
func (o *BuildOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := o.root.loadConfig()
	if err != nil {
		return err
	}

	if o.Profile != "" {
		cfg.Profile = o.Profile
	}
	if o.PythonVersions != "" {
		cfg.Build.PythonVersions = o.PythonVersions
	}
	if o.Timeout > 0 {
		cfg.Build.Timeout = o.Timeout
	}
	if o.SkipUpload {
		cfg.Upload.Enabled = false
	}
	if o.OutputDir != "" {
		if p, ok := cfg.Profiles[cfg.Profile]; ok {
			p.OutputDir = o.OutputDir
			cfg.Profiles[cfg.Profile] = p
		}
	}

	o.cfg = cfg
	return nil
}

func (o *BuildOptions) Validate() error {
	return o.cfg.Validate()
}

func (o *BuildOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(o.cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	profile, err := o.cfg.ActiveProfile()
	if err != nil {
		return err
	}

	uploader, closeUploader, err := newUploader(ctx, o.cfg, o.DryRun)
	if err != nil {
		return err
	}
	defer closeUploader()

	if o.DryRun {
		fmt.Fprintln(o.Out, "Dry run: uploads will be simulated")
	}
	fmt.Fprintf(o.Out, "Building wheels with profile %q...\n", o.cfg.Profile)

	result, err := pipeline.Run(ctx, pipeline.Options{
		Config:     o.cfg,
		Profile:    profile,
		RunID:      run.NewID(),
		Logger:     logger,
		Uploader:   uploader,
		ToolOutput: o.ErrOut,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(o.Out, "Build complete: %d files staged in %s (%s)\n",
		result.Staged, result.OutputDir, result.Duration.Round(time.Second))
	for _, a := range result.Artefacts {
		if a.Uploaded {
			fmt.Fprintf(o.Out, "Uploaded %s to %s\n", a.Name, a.Location)
		}
	}
	if result.Uploaded == 0 {
		fmt.Fprintln(o.Out, "No artefacts were published")
	}

	return nil
}
