// Package archive packs a directory tree into a tar.gz stream and unpacks it
// again, recording a manifest of the packed entries.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ManifestVersion is the current manifest format.
	ManifestVersion = "1.0"
	// ManifestName is the archive entry holding the manifest.
	ManifestName = "manifest.json"
	// filesPrefix is the archive directory holding the packed tree.
	filesPrefix = "files/"
)

// ErrUnsafePath is returned when an archive entry would escape the target.
var ErrUnsafePath = errors.New("archive entry escapes target directory")

// Manifest describes the content of an archive.
type Manifest struct {
	Version   string         `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Source    string         `json:"source,omitempty"`
	Label     string         `json:"label,omitempty"`
	FileCount int            `json:"file_count"`
	Files     []ManifestFile `json:"files"`
}

// ManifestFile is one packed file or symlink.
type ManifestFile struct {
	Path string      `json:"path"`
	Size int64       `json:"size"`
	Mode fs.FileMode `json:"mode"`
	Link string      `json:"link,omitempty"`
}

// CreateOptions configures archive creation.
type CreateOptions struct {
	Label  string // Free-form description stored in the manifest
	OnFile func() // Called after each packed file
}

// ExtractOptions configures archive extraction.
type ExtractOptions struct {
	TargetDir string // Directory to unpack into; created when missing
	DryRun    bool   // Read the archive without writing anything
}

// Create packs every file, directory and symlink below root into w.
func Create(root string, w io.Writer, opts CreateOptions) (manifest *Manifest, err error) {
	gzWriter := gzip.NewWriter(w)
	tarWriter := tar.NewWriter(gzWriter)
	defer func() {
		if cerr := tarWriter.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close tar stream: %w", cerr)
		}
		if cerr := gzWriter.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close gzip stream: %w", cerr)
		}
	}()

	manifest = &Manifest{
		Version:   ManifestVersion,
		CreatedAt: time.Now().UTC(),
		Source:    root,
		Label:     opts.Label,
		Files:     make([]ManifestFile, 0),
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		entry, err := addEntry(tarWriter, p, rel, info)
		if err != nil {
			return err
		}
		if entry != nil {
			manifest.Files = append(manifest.Files, *entry)
			if opts.OnFile != nil {
				opts.OnFile()
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to archive %q: %w", root, err)
	}
	manifest.FileCount = len(manifest.Files)

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}
	header := &tar.Header{
		Name:    ManifestName,
		Mode:    0o644,
		Size:    int64(len(manifestData)),
		ModTime: manifest.CreatedAt,
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return nil, fmt.Errorf("failed to write manifest header: %w", err)
	}
	if _, err := tarWriter.Write(manifestData); err != nil {
		return nil, fmt.Errorf("failed to write manifest data: %w", err)
	}

	return manifest, nil
}

// addEntry writes one tree entry. Directories return a nil ManifestFile.
func addEntry(tw *tar.Writer, p, rel string, info fs.FileInfo) (*ManifestFile, error) {
	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read symlink %q: %w", p, err)
		}
		link = target
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return nil, fmt.Errorf("failed to build header for %q: %w", rel, err)
	}
	header.Name = filesPrefix + rel
	if info.IsDir() {
		header.Name += "/"
	}
	if err := tw.WriteHeader(header); err != nil {
		return nil, fmt.Errorf("failed to write tar header for %q: %w", rel, err)
	}

	if info.IsDir() {
		return nil, nil
	}
	entry := &ManifestFile{Path: rel, Mode: info.Mode(), Link: link}
	if !info.Mode().IsRegular() {
		return entry, nil
	}

	// #nosec G304 - p comes from walking the archived root
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", p, err)
	}
	defer func() { _ = f.Close() }()
	n, err := io.Copy(tw, f)
	if err != nil {
		return nil, fmt.Errorf("failed to write %q: %w", rel, err)
	}
	entry.Size = n
	return entry, nil
}

// Extract unpacks an archive produced by Create into opts.TargetDir and
// returns its manifest.
func Extract(r io.Reader, opts ExtractOptions) (*Manifest, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gzReader.Close() }()

	tarReader := tar.NewReader(gzReader)
	var manifest *Manifest

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar header: %w", err)
		}

		if header.Name == ManifestName {
			data, err := io.ReadAll(tarReader)
			if err != nil {
				return nil, fmt.Errorf("failed to read manifest: %w", err)
			}
			if err := json.Unmarshal(data, &manifest); err != nil {
				return nil, fmt.Errorf("failed to parse manifest: %w", err)
			}
			continue
		}

		if !strings.HasPrefix(header.Name, filesPrefix) || opts.DryRun {
			continue
		}
		target, err := safeJoin(opts.TargetDir, strings.TrimPrefix(header.Name, filesPrefix))
		if err != nil {
			return nil, err
		}
		if err := writeEntry(tarReader, header, target); err != nil {
			return nil, err
		}
	}

	if manifest == nil {
		return nil, fmt.Errorf("archive missing %s", ManifestName)
	}
	return manifest, nil
}

func writeEntry(tr *tar.Reader, header *tar.Header, target string) error {
	mode := header.FileInfo().Mode()
	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, mode.Perm()|0o700); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("failed to create directory for %q: %w", target, err)
		}
		if err := os.Symlink(header.Linkname, target); err != nil {
			return fmt.Errorf("failed to create symlink %q: %w", target, err)
		}
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("failed to create directory for %q: %w", target, err)
		}
		// #nosec G304 - target is checked by safeJoin
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
		if err != nil {
			return fmt.Errorf("failed to create %q: %w", target, err)
		}
		// #nosec G110 - archives are produced locally by Create
		if _, err := io.Copy(f, tr); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write %q: %w", target, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %q: %w", target, err)
		}
	}
	return nil
}

// safeJoin resolves the slash-separated entry name below dir, rejecting
// absolute names and names that climb out of dir.
func safeJoin(dir, name string) (string, error) {
	clean := path.Clean(strings.TrimSuffix(name, "/"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(dir, filepath.FromSlash(clean)), nil
}
