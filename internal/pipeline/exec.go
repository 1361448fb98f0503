package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// runTool executes an external tool in the work directory with the merged
// environment, streaming its combined output to the pipeline's tool writer.
// The configured build timeout bounds the call; zero means unbounded.
func (p *pipeline) runTool(ctx context.Context, step, bin string, extra map[string]string) error {
	if timeout := p.cfg.Build.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin)
	cmd.Dir = p.cfg.Build.WorkDir
	cmd.Env = mergeEnv(os.Environ(), extra)
	cmd.Stdout = p.toolOut
	cmd.Stderr = p.toolOut

	p.log.Info("running external tool",
		zap.String("step", step),
		zap.String("bin", bin),
		zap.String("workdir", cmd.Dir))

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %s", step, p.cfg.Build.Timeout)
		}
		return fmt.Errorf("%s: %w", step, err)
	}

	p.log.Info("external tool finished",
		zap.String("step", step),
		zap.Duration("elapsed", elapsed))
	return nil
}

// mergeEnv overlays extra onto base. Keys already present in base are
// replaced in place; new keys are appended in sorted order so the child
// environment is deterministic.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}

	merged := make([]string, len(base))
	copy(merged, base)

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		merged = setEnvKey(merged, k, extra[k])
	}
	return merged
}

func setEnvKey(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
