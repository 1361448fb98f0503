package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"wheelhouse/internal/config"
	"wheelhouse/internal/logging"
	"wheelhouse/internal/run"
	"wheelhouse/internal/server"
)

// ServeOptions defines the options for the `wheelhouse serve` command.
type ServeOptions struct {
	root *WheelhouseOptions
	cfg  *config.Config

	Addr string

	iooption.IOStreams
}

var (
	serveLong = templates.LongDesc(`Start the build submission HTTP server.`)

	serveExamples = templates.Examples(`
		# Start on the configured address
		wheelhouse serve

		# Start on a custom address
		wheelhouse serve --addr :9090`)
)

func NewServeOptions(root *WheelhouseOptions) *ServeOptions {
	return &ServeOptions{
		root:      root,
		IOStreams: root.IOStreams,
	}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the build submission HTTP server",
		Long:    serveLong,
		Example: serveExamples,
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

	cmd.Flags().StringVarP(&o.Addr, "addr", "a", "", "Listen address, overriding the configured one")

	return cmd
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := o.root.loadConfig()
	if err != nil {
		return err
	}

	if o.Addr != "" {
		cfg.Server.ListenAddress = o.Addr
	}

	o.cfg = cfg
	return nil
}

func (o *ServeOptions) Validate() error {
	return o.cfg.Validate()
}

func (o *ServeOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(o.cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	uploader, closeUploader, err := newUploader(ctx, o.cfg, false)
	if err != nil {
		return err
	}
	defer closeUploader()

	store := run.NewMemoryStore()
	worker := run.NewWorker(o.cfg.Server.QueueSize, logger)
	worker.Start(ctx)

	srv := server.New(store, worker, uploader, o.cfg, logger)

	addr := o.cfg.Server.ListenAddress
	fmt.Fprintf(o.Out, "Starting wheelhouse server on %s\n", addr)

	err = srv.ListenAndServe(ctx, addr)

	// Stop cancels ctx, which also ends the worker's drain loop; wait for
	// it before tearing down the uploader.
	stop()
	worker.Wait()
	return err
}
