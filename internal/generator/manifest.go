package generator

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

// ManifestName is the config file written at the root of the output folder.
const ManifestName = "patch-config.toml"

// Manifest is the generated patch configuration.
type Manifest struct {
	Patch PatchInfo   `toml:"patch"`
	Files []FileEntry `toml:"file"`
}

// PatchInfo summarizes the patch.
type PatchInfo struct {
	Name        string    `toml:"name"`
	Source      string    `toml:"source"`
	GeneratedAt time.Time `toml:"generated_at"`
	FileCount   int       `toml:"file_count"`
	TotalSize   int64     `toml:"total_size"`
}

// FileEntry describes one file shipped in the patch. Path is slash
// separated and relative to the patch root.
type FileEntry struct {
	Path   string `toml:"path"`
	Size   int64  `toml:"size"`
	SHA256 string `toml:"sha256"`
}

// LoadManifest reads a manifest written by Generate.
func LoadManifest(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("decoding manifest %q: %w", path, err)
	}
	return &m, nil
}
