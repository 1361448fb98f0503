// Package pipeline orchestrates the wheel packaging flow: prepare the build
// environment, build wheels for the selected interpreter versions, stage the
// artefacts into the output directory, and publish the matching ones to
// object storage. Steps run strictly in order and the first failure aborts
// the run; a failed build never reaches staging or publishing.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"wheelhouse/internal/config"
	"wheelhouse/internal/storage"
	"wheelhouse/internal/wheel"
)

// Options controls a pipeline run.
type Options struct {
	// Config is the effective configuration. Required.
	Config *config.Config

	// Profile is the active pipeline profile, normally resolved via
	// Config.ActiveProfile.
	Profile config.Profile

	// RunID labels the run in logs and in the report. May be empty for
	// direct CLI invocations.
	RunID string

	// Logger receives orchestration events. Defaults to a no-op logger.
	Logger *zap.Logger

	// Uploader is the storage backend for publishing. Defaults to the null
	// backend, which discards uploads.
	Uploader storage.Uploader

	// ToolOutput receives the raw combined stdout/stderr of invoked
	// external tools. Defaults to io.Discard.
	ToolOutput io.Writer
}

// Result is the outcome of a pipeline run.
type Result struct {
	// Versions is the interpreter tag list the build ran with.
	Versions string

	// OutputDir is where the artefacts were staged.
	OutputDir string

	// Staged counts every file copied out of the artefact directory,
	// nested ones included.
	Staged int

	// Artefacts lists the top-level staged files, in lexical order. Only
	// these are candidates for publishing.
	Artefacts []Artefact

	// Uploaded counts artefacts that reached the storage backend.
	Uploaded int

	Duration time.Duration
}

// Artefact describes one top-level staged file.
type Artefact struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256"`
	Uploaded bool   `json:"uploaded"`
	Location string `json:"location,omitempty"`
}

type pipeline struct {
	cfg      *config.Config
	profile  config.Profile
	runID    string
	log      *zap.Logger
	uploader storage.Uploader
	toolOut  io.Writer
}

func newPipeline(opts Options) *pipeline {
	p := &pipeline{
		cfg:      opts.Config,
		profile:  opts.Profile,
		runID:    opts.RunID,
		log:      opts.Logger,
		uploader: opts.Uploader,
		toolOut:  opts.ToolOutput,
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.uploader == nil {
		p.uploader = storage.NullUploader{}
	}
	if p.toolOut == nil {
		p.toolOut = io.Discard
	}
	return p
}

// Run executes the full pipeline described by opts.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("pipeline: config must not be nil")
	}

	p := newPipeline(opts)
	start := time.Now()

	versions := wheel.Select(p.cfg.Build.PythonVersions)
	for _, tag := range wheel.SplitTags(versions) {
		if !wheel.ValidTag(tag) {
			p.log.Warn("unrecognised interpreter tag", zap.String("tag", tag))
		}
	}
	p.log.Info("interpreter versions selected",
		zap.String("versions", versions),
		zap.Bool("override", p.cfg.Build.PythonVersions != ""))

	if err := p.prepare(ctx); err != nil {
		return nil, fmt.Errorf("pipeline: prepare: %w", err)
	}

	if err := p.build(ctx, versions); err != nil {
		return nil, fmt.Errorf("pipeline: build: %w", err)
	}

	outputDir := p.workPath(p.profile.OutputDir)
	names, staged, err := p.stage(outputDir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: stage: %w", err)
	}

	artefacts, uploaded, err := p.publish(ctx, outputDir, names)
	if err != nil {
		return nil, fmt.Errorf("pipeline: publish: %w", err)
	}

	result := &Result{
		Versions:  versions,
		OutputDir: outputDir,
		Staged:    staged,
		Artefacts: artefacts,
		Uploaded:  uploaded,
		Duration:  time.Since(start),
	}

	if err := p.writeReport(outputDir, start, result); err != nil {
		return nil, fmt.Errorf("pipeline: report: %w", err)
	}

	p.log.Info("pipeline complete",
		zap.Int("staged", result.Staged),
		zap.Int("uploaded", result.Uploaded),
		zap.Duration("elapsed", result.Duration))
	return result, nil
}

// Publish uploads the matching files already staged in dir, without running a
// build. It applies the same gating and naming rules as a full run.
func Publish(ctx context.Context, opts Options, dir string) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("pipeline: config must not be nil")
	}

	p := newPipeline(opts)
	start := time.Now()

	names, err := listTopLevel(dir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: publish: %w", err)
	}

	artefacts, uploaded, err := p.publish(ctx, dir, names)
	if err != nil {
		return nil, fmt.Errorf("pipeline: publish: %w", err)
	}

	return &Result{
		OutputDir: dir,
		Staged:    len(names),
		Artefacts: artefacts,
		Uploaded:  uploaded,
		Duration:  time.Since(start),
	}, nil
}

// prepare runs the optional environment preparation script as a child
// process. The script is an opaque collaborator; the pipeline's only duty is
// to hand it the profile environment and the luban version when set.
func (p *pipeline) prepare(ctx context.Context) error {
	if p.cfg.Build.SetupScript == "" {
		p.log.Debug("no setup script configured, skipping preparation")
		return nil
	}

	extra := make(map[string]string, len(p.profile.PrepareEnv)+1)
	for k, v := range p.profile.PrepareEnv {
		extra[k] = v
	}
	if p.cfg.Build.LubanVersion != "" {
		extra["LUBAN_SPECFIC_VERSION"] = p.cfg.Build.LubanVersion
	}

	return p.runTool(ctx, "setup script", p.cfg.Build.SetupScript, extra)
}

// build invokes the wheel-build script with the selected interpreter tags
// exported as PYTHON_VERSIONS. BAZEL_LIMIT_CPUS passes through untouched when
// configured. An artefact watcher reports wheels as the build drops them.
func (p *pipeline) build(ctx context.Context, versions string) error {
	w := newArtefactWatcher(p.workPath(p.cfg.Build.ArtefactDir), p.log)
	w.start()
	defer w.stop()

	extra := map[string]string{"PYTHON_VERSIONS": versions}
	if p.cfg.Build.BazelLimitCPUs != "" {
		extra["BAZEL_LIMIT_CPUS"] = p.cfg.Build.BazelLimitCPUs
	}

	return p.runTool(ctx, "build script", p.cfg.Build.Script, extra)
}
