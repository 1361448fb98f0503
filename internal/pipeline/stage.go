package pipeline

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// stage copies the entire contents of the artefact directory into outputDir,
// preserving the relative layout. It returns the names of the top-level
// files, in lexical order, and the total number of files copied.
func (p *pipeline) stage(outputDir string) ([]string, int, error) {
	src := p.workPath(p.cfg.Build.ArtefactDir)
	if _, err := os.Stat(src); err != nil {
		return nil, 0, fmt.Errorf("artefact directory %q: %w", src, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, 0, fmt.Errorf("failed to create output directory %q: %w", outputDir, err)
	}

	var names []string
	total := 0

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		dest := filepath.Join(outputDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}

		if err := copyFile(path, dest); err != nil {
			return err
		}
		total++
		if !strings.ContainsRune(rel, filepath.Separator) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to copy artefacts: %w", err)
	}

	sort.Strings(names)
	p.log.Info("artefacts staged",
		zap.String("from", src),
		zap.String("to", outputDir),
		zap.Int("files", total))
	return names, total, nil
}

// copyFile copies src to dest, carrying the source file mode across.
func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// listTopLevel returns the names of the regular files directly inside dir,
// in lexical order.
func listTopLevel(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// workPath resolves rel against the configured work directory. Absolute
// paths are returned unchanged.
func (p *pipeline) workPath(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.cfg.Build.WorkDir, rel)
}
