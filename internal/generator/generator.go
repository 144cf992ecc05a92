// Package generator builds an AECO patch configuration: it copies a patch
// folder into an output folder and writes a manifest describing every file.
//
// Generate is slow on large patches and is meant to run off the event loop,
// via runner.Runner.
package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

// Generator writes patch configurations on a filesystem.
type Generator struct {
	fs    afero.Fs
	now   func() time.Time
	delay time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time stamped into manifests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithDelay makes every generation sleep for d first. Used to demo and
// test the UI against a slow operation.
func WithDelay(d time.Duration) Option {
	return func(g *Generator) { g.delay = d }
}

// New returns a Generator operating on fs.
func New(fs afero.Fs, opts ...Option) *Generator {
	g := &Generator{fs: fs, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewOS returns a Generator on the real filesystem.
func NewOS(opts ...Option) *Generator {
	return New(afero.NewOsFs(), opts...)
}

// Generate copies inputDir into outputDir and writes outputDir/ManifestName.
// Existing files in outputDir are overwritten. Hidden files and folders
// (leading ".") are skipped.
func (g *Generator) Generate(inputDir, outputDir string) error {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}

	src, dst, err := g.resolve(inputDir, outputDir)
	if err != nil {
		return err
	}

	if err := g.fs.MkdirAll(dst, 0o755); err != nil {
		return &Error{Op: "mkdir", Path: dst, Err: err}
	}

	var files []FileEntry
	err = afero.Walk(g.fs, src, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return &Error{Op: "walk", Path: path, Err: walkErr}
		}
		if path == src {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return &Error{Op: "walk", Path: path, Err: err}
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			if err := g.fs.MkdirAll(target, 0o755); err != nil {
				return &Error{Op: "mkdir", Path: target, Err: err}
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		entry, err := g.copyFile(path, target)
		if err != nil {
			return err
		}
		entry.Path = filepath.ToSlash(rel)
		files = append(files, entry)
		return nil
	})
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return &Error{Op: "scan", Path: src, Err: ErrEmptyPatch}
	}

	return g.writeManifest(src, dst, files)
}

// resolve validates the two folders and returns their absolute forms.
func (g *Generator) resolve(inputDir, outputDir string) (string, string, error) {
	// filepath.Abs("") is the working directory, which must never be
	// mistaken for a chosen patch.
	if strings.TrimSpace(inputDir) == "" {
		return "", "", &Error{Op: "resolve", Err: ErrNoPatchDir}
	}
	src, err := filepath.Abs(inputDir)
	if err != nil {
		return "", "", &Error{Op: "resolve", Path: inputDir, Err: err}
	}
	dst, err := filepath.Abs(outputDir)
	if err != nil {
		return "", "", &Error{Op: "resolve", Path: outputDir, Err: err}
	}

	info, err := g.fs.Stat(src)
	if err != nil {
		return "", "", &Error{Op: "stat", Path: src, Err: err}
	}
	if !info.IsDir() {
		return "", "", &Error{Op: "stat", Path: src, Err: ErrNotDirectory}
	}

	if rel, err := filepath.Rel(src, dst); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", &Error{Op: "resolve", Path: dst, Err: ErrNestedOutput}
	}

	return src, dst, nil
}

// copyFile copies src to dest, hashing the bytes as they pass through.
func (g *Generator) copyFile(src, dest string) (entry FileEntry, err error) {
	in, err := g.fs.Open(src)
	if err != nil {
		return entry, &Error{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	out, err := g.fs.Create(dest)
	if err != nil {
		return entry, &Error{Op: "create", Path: dest, Err: err}
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = &Error{Op: "close", Path: dest, Err: cerr}
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), in)
	if err != nil {
		return entry, &Error{Op: "write", Path: dest, Err: err}
	}
	if err := out.Sync(); err != nil {
		return entry, &Error{Op: "sync", Path: dest, Err: err}
	}

	return FileEntry{Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

func (g *Generator) writeManifest(src, dst string, files []FileEntry) error {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var total int64
	for _, f := range files {
		total += f.Size
	}

	m := Manifest{
		Patch: PatchInfo{
			Name:        filepath.Base(src),
			Source:      src,
			GeneratedAt: g.now().UTC().Truncate(time.Second),
			FileCount:   len(files),
			TotalSize:   total,
		},
		Files: files,
	}

	path := filepath.Join(dst, ManifestName)
	f, err := g.fs.Create(path)
	if err != nil {
		return &Error{Op: "create", Path: path, Err: err}
	}

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return &Error{Op: "write", Path: path, Err: fmt.Errorf("encoding manifest: %w", err)}
	}
	if err := f.Close(); err != nil {
		return &Error{Op: "close", Path: path, Err: err}
	}
	return nil
}
