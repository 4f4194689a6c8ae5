package tools

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

type archiveFormat string

const (
	archiveFormatZip archiveFormat = "zip"
	archiveFormatTar archiveFormat = "tar"
)

var tarSuffixes = []string{
	".tar", ".tar.gz", ".tgz", ".tar.xz", ".txz",
	".tar.bz2", ".tbz2", ".tbz", ".tar.zst", ".tzst",
}

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicXz    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicBzip2 = []byte{'B', 'Z', 'h'}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// detectFormat picks the container format from the file name. The tar
// compression layer is sniffed separately from the stream itself.
func detectFormat(archivePath string) (archiveFormat, error) {
	name := strings.ToLower(filepath.Base(archivePath))
	if strings.HasSuffix(name, ".zip") {
		return archiveFormatZip, nil
	}
	for _, suffix := range tarSuffixes {
		if strings.HasSuffix(name, suffix) {
			return archiveFormatTar, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(archivePath))
}

// Extractor unpacks downloaded archives.
type Extractor struct{}

// Extract implements Unpacker.
func (Extractor) Extract(archivePath, destDir string) error {
	return Extract(archivePath, destDir)
}

// Extract unpacks archivePath into destDir, creating destDir when missing.
func Extract(archivePath, destDir string) error {
	format, err := detectFormat(archivePath)
	if err != nil {
		return &ExtractError{Archive: archivePath, Err: err}
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &ExtractError{Archive: archivePath, Err: fmt.Errorf("prepare extract dir: %w", err)}
	}

	switch format {
	case archiveFormatZip:
		err = extractZip(archivePath, destDir)
	default:
		err = extractTar(archivePath, destDir)
	}
	if err != nil {
		return &ExtractError{Archive: archivePath, Err: err}
	}
	return nil
}

// sanitizePath joins name onto destDir and rejects entries that would land
// outside it.
func sanitizePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil {
		return "", fmt.Errorf("resolve entry %s: %w", name, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %s escapes destination", name)
	}
	return target, nil
}

func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, err := sanitizePath(dest, file.Name)
		if err != nil {
			return err
		}
		mode := file.Mode()
		switch {
		case file.FileInfo().IsDir():
			if err := os.MkdirAll(target, dirMode(mode)); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
		case mode&os.ModeSymlink != 0:
			linkTarget, err := readZipEntry(file)
			if err != nil {
				return err
			}
			if err := writeSymlink(dest, target, string(linkTarget)); err != nil {
				return err
			}
		default:
			rc, err := file.Open()
			if err != nil {
				return fmt.Errorf("open zip entry %s: %w", file.Name, err)
			}
			err = writeFile(target, rc, mode)
			rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func readZipEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", file.Name, err)
	}
	return data, nil
}

func extractTar(archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	stream, closeStream, err := decompress(bufio.NewReader(file))
	if err != nil {
		return err
	}
	defer closeStream()

	return untarStream(stream, dest)
}

// decompress wraps r in the decoder matching its magic bytes. Plain tar
// streams pass through unchanged.
func decompress(r *bufio.Reader) (io.Reader, func(), error) {
	head, err := r.Peek(len(magicXz))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, nil, fmt.Errorf("read archive header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, magicGzip):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	case bytes.HasPrefix(head, magicXz):
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}
		return xzr, func() {}, nil
	case bytes.HasPrefix(head, magicBzip2):
		return bzip2.NewReader(r), func() {}, nil
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}

func untarStream(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		target, err := sanitizePath(dest, header.Name)
		if err != nil {
			return err
		}
		mode := header.FileInfo().Mode()
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode(mode)); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, mode); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(dest, target, header.Linkname); err != nil {
				return err
			}
		case tar.TypeLink:
			source, err := sanitizePath(dest, header.Linkname)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("prepare link %s: %w", target, err)
			}
			_ = os.Remove(target)
			if err := os.Link(source, target); err != nil {
				return fmt.Errorf("create hard link %s: %w", target, err)
			}
		default:
			// Devices, fifos and pax metadata carry nothing a toolchain needs.
		}
	}
	return nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare file %s: %w", target, err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode(mode))
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

// writeSymlink creates a link at target. Links resolving outside dest are
// rejected.
func writeSymlink(dest, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	}
	rel, err := filepath.Rel(dest, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("symlink %s -> %s escapes destination", target, linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare link %s: %w", target, err)
	}
	_ = os.Remove(target)
	if err := os.Symlink(filepath.FromSlash(linkname), target); err != nil {
		return fmt.Errorf("create symlink %s: %w", target, err)
	}
	return nil
}

func dirMode(mode os.FileMode) os.FileMode {
	return mode.Perm() | 0o700
}

func fileMode(mode os.FileMode) os.FileMode {
	return mode.Perm() | 0o600
}

// Flatten collapses a lone wrapping directory: when destDir holds exactly one
// entry and it is a directory, that directory's children move up into
// destDir and the emptied directory is removed. Anything else is left as is.
func Flatten(destDir string) error {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return fmt.Errorf("read %s: %w", destDir, err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	// Move the wrapper aside first so a child sharing its name can take its
	// place.
	wrapper := filepath.Join(destDir, entries[0].Name())
	staged := filepath.Join(destDir, ".flatten-"+entries[0].Name())
	if err := os.Rename(wrapper, staged); err != nil {
		return fmt.Errorf("stage %s: %w", wrapper, err)
	}

	children, err := os.ReadDir(staged)
	if err != nil {
		return fmt.Errorf("read %s: %w", staged, err)
	}
	for _, child := range children {
		src := filepath.Join(staged, child.Name())
		dst := filepath.Join(destDir, child.Name())
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("move %s: %w", src, err)
		}
	}
	if err := os.Remove(staged); err != nil {
		return fmt.Errorf("remove %s: %w", staged, err)
	}
	return nil
}
