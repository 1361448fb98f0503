package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"wheelhouse/internal/config"
	"wheelhouse/internal/logging"
	"wheelhouse/internal/pipeline"
)

// PublishOptions defines the options for the `wheelhouse publish` command.
type PublishOptions struct {
	root *WheelhouseOptions
	cfg  *config.Config

	Dir     string
	Version string
	DryRun  bool

	iooption.IOStreams
}

var (
	publishLong = templates.LongDesc(`
		Publish already staged wheels without rebuilding them. The directory
		defaults to the active profile's output directory.`)

	publishExamples = templates.Examples(`
		# Publish the default profile's staged wheels as v1.13.0
		wheelhouse publish --version v1.13.0

		# Publish a specific directory
		wheelhouse publish /data/dist --version nightly-20220812`)
)

func NewPublishOptions(root *WheelhouseOptions) *PublishOptions {
	return &PublishOptions{
		root:      root,
		IOStreams: root.IOStreams,
	}
}

func NewPublishCommand(o *PublishOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "publish [DIR]",
		DisableFlagsInUseLine: true,
		Short:                 "Publish staged wheels to object storage",
		Long:                  publishLong,
		Example:               publishExamples,
		Args:                  cobra.MaximumNArgs(1),
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
	flags.StringVar(&o.Version, "version", "", "Build version naming the remote key prefix")
	flags.BoolVar(&o.DryRun, "dry-run", false, "Simulate uploads")

	return cmd
}

// Complete resolves the staging directory and forces the upload gate on;
// running publish is the explicit intent to upload.
func (o *PublishOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := o.root.loadConfig()
	if err != nil {
		return err
	}

	if o.Version != "" {
		cfg.Upload.BuildVersion = o.Version
	}
	cfg.Upload.Enabled = true

	if len(args) > 0 {
		o.Dir = args[0]
	} else {
		profile, err := cfg.ActiveProfile()
		if err != nil {
			return err
		}
		o.Dir = profile.OutputDir
		if !filepath.IsAbs(o.Dir) {
			o.Dir = filepath.Join(cfg.Build.WorkDir, o.Dir)
		}
	}

	o.cfg = cfg
	return nil
}

func (o *PublishOptions) Validate() error {
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	if o.cfg.Upload.BuildVersion == "" {
		return fmt.Errorf("a build version is required to publish; set --version or BUILD_VERSION")
	}
	return nil
}

func (o *PublishOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(o.cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	uploader, closeUploader, err := newUploader(ctx, o.cfg, o.DryRun)
	if err != nil {
		return err
	}
	defer closeUploader()

	if o.DryRun {
		fmt.Fprintln(o.Out, "Dry run: uploads will be simulated")
	}
	fmt.Fprintf(o.Out, "Publishing wheels from %s as %s...\n", o.Dir, o.cfg.Upload.BuildVersion)

	result, err := pipeline.Publish(ctx, pipeline.Options{
		Config:   o.cfg,
		Logger:   logger,
		Uploader: uploader,
	}, o.Dir)
	if err != nil {
		return err
	}

	for _, a := range result.Artefacts {
		if a.Uploaded {
			fmt.Fprintf(o.Out, "Uploaded %s to %s\n", a.Name, a.Location)
		}
	}
	fmt.Fprintf(o.Out, "Published %d of %d staged files\n", result.Uploaded, result.Staged)

	return nil
}
