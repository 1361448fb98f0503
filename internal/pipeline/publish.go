package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wheelhouse/internal/storage"
	"wheelhouse/internal/wheel"
)

// publish uploads the staged artefacts whose names match the platform
// suffix. Publishing is skipped silently when no build version is set or
// when the upload gate is off. Each matching artefact triggers exactly one
// upload; there are no retries.
func (p *pipeline) publish(ctx context.Context, dir string, names []string) ([]Artefact, int, error) {
	artefacts := make([]Artefact, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to stat artefact %q: %w", name, err)
		}
		sum, err := fileSHA256(path)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to checksum artefact %q: %w", name, err)
		}
		artefacts[i] = Artefact{Name: name, Size: info.Size(), SHA256: sum}
	}

	if p.cfg.Upload.BuildVersion == "" {
		p.log.Info("publish skipped: no build version set")
		return artefacts, 0, nil
	}
	if !p.cfg.Upload.Enabled {
		p.log.Info("publish skipped: upload gate is off")
		return artefacts, 0, nil
	}

	limit := p.cfg.Upload.Concurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range artefacts {
		a := &artefacts[i]
		if !wheel.MatchesPlatform(a.Name, p.cfg.Upload.PlatformSuffix) {
			p.log.Debug("artefact does not match platform suffix, skipping",
				zap.String("artefact", a.Name))
			continue
		}

		g.Go(func() error {
			uctx := gctx
			if timeout := p.cfg.Upload.Timeout; timeout > 0 {
				var cancel context.CancelFunc
				uctx, cancel = context.WithTimeout(gctx, timeout)
				defer cancel()
			}

			objectName := p.cfg.Upload.BuildVersion + "/" + a.Name
			res, err := p.uploader.Upload(uctx, &storage.UploadRequest{
				ObjectName:  objectName,
				Path:        filepath.Join(dir, a.Name),
				ContentType: "application/octet-stream",
			})
			if err != nil {
				return err
			}

			a.Uploaded = true
			a.Location = res.Location
			p.log.Info("artefact uploaded",
				zap.String("artefact", a.Name),
				zap.String("object", objectName),
				zap.String("location", res.Location))
			return nil
		})
	}

	err := g.Wait()

	uploaded := 0
	for i := range artefacts {
		if artefacts[i].Uploaded {
			uploaded++
		}
	}
	if err != nil {
		return artefacts, uploaded, err
	}
	return artefacts, uploaded, nil
}
