package rewrite

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"upc/internal/errors"
)

// BackupExt is the file extension of backup archives.
const BackupExt = ".tar.zst"

// Backup is a zstd-compressed tar of document originals. Entries are
// named by the document's absolute path.
type Backup struct {
	path    string
	file    *os.File
	zw      *zstd.Encoder
	tw      *tar.Writer
	entries int
}

// CreateBackup creates the archive at path, making parent directories.
func CreateBackup(path string) (*Backup, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.New(errors.IOFailure, "create "+filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.New(errors.IOFailure, "create "+path, err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.New(errors.InternalError, "zstd writer", err)
	}
	return &Backup{path: path, file: f, zw: zw, tw: tar.NewWriter(zw)}, nil
}

// Path returns the archive location.
func (b *Backup) Path() string {
	return b.path
}

// Len returns the number of documents stored so far.
func (b *Backup) Len() int {
	return b.entries
}

// Add stores the original content of the document at path.
func (b *Backup) Add(path string, content []byte, mode fs.FileMode) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.New(errors.IOFailure, "backup "+path, err)
	}
	hdr := &tar.Header{
		Name:     filepath.ToSlash(abs),
		Mode:     int64(mode.Perm()),
		Size:     int64(len(content)),
		ModTime:  time.Now(),
		Typeflag: tar.TypeReg,
	}
	if err := b.tw.WriteHeader(hdr); err != nil {
		return errors.New(errors.IOFailure, "backup "+path, err)
	}
	if _, err := b.tw.Write(content); err != nil {
		return errors.New(errors.IOFailure, "backup "+path, err)
	}
	b.entries++
	return nil
}

// Close flushes and closes the archive. An archive with no entries is
// removed.
func (b *Backup) Close() error {
	err := b.tw.Close()
	if cerr := b.zw.Close(); err == nil {
		err = cerr
	}
	if cerr := b.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.New(errors.IOFailure, "close "+b.path, err)
	}
	if b.entries == 0 {
		_ = os.Remove(b.path)
	}
	return nil
}

// Restore writes every document in the archive back to where it was
// taken from and returns the restored paths.
func Restore(archivePath string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, errors.New(errors.IOFailure, "open "+archivePath, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.New(errors.IOFailure, "read "+archivePath, err)
	}
	defer zr.Close()

	var restored []string
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return restored, errors.New(errors.IOFailure, "read "+archivePath, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return restored, errors.New(errors.IOFailure, "read "+hdr.Name, err)
		}
		path := filepath.FromSlash(hdr.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return restored, errors.New(errors.IOFailure, "create "+filepath.Dir(path), err)
		}
		if err := writeAtomic(path, content, fs.FileMode(hdr.Mode).Perm()); err != nil {
			return restored, err
		}
		restored = append(restored, path)
	}
	return restored, nil
}
