package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ehr/burnout/internal/domain/workforce"
)

// DirWriter persists a dataset into an existing directory. Files are staged
// under temporary names and only renamed into place once every file has been
// written, so a failed run leaves no partial dataset behind.
type DirWriter struct {
	dir     string
	formats []Format
	logger  zerolog.Logger
	rename  func(oldpath, newpath string) error
}

// NewDirWriter creates a writer for dir in the given formats.
func NewDirWriter(dir string, formats []Format, logger zerolog.Logger) *DirWriter {
	return &DirWriter{dir: dir, formats: formats, logger: logger, rename: os.Rename}
}

type stagedFile struct {
	tmp    string
	final  string
	backup string // previous file moved aside during commit, if any
}

// Write stages and commits every table plus the manifest. It returns the
// final file paths.
func (w *DirWriter) Write(ds *workforce.Dataset, run RunInfo) ([]string, error) {
	if err := checkDir(w.dir); err != nil {
		return nil, err
	}

	tables := ds.Tables()
	var staged []stagedFile
	discard := func() {
		for _, s := range staged {
			os.Remove(s.tmp)
		}
	}

	stage := func(name string, fn func(io.Writer) error) error {
		s, err := w.stage(name, fn)
		if err != nil {
			return err
		}
		staged = append(staged, s)
		return nil
	}

	for _, f := range w.formats {
		switch f {
		case FormatCSV, FormatNDJSON:
			for _, t := range tables {
				t, enc := t, WriteCSV
				if f == FormatNDJSON {
					enc = WriteNDJSON
				}
				if err := stage(fileFor(t.Name, f), func(out io.Writer) error { return enc(out, t) }); err != nil {
					discard()
					return nil, err
				}
			}
		case FormatXLSX:
			if err := stage(WorkbookName, func(out io.Writer) error { return WriteWorkbook(out, tables) }); err != nil {
				discard()
				return nil, err
			}
		default:
			discard()
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}

	manifest := NewManifest(run, tables, w.formats)
	if err := stage(ManifestName, manifest.Encode); err != nil {
		discard()
		return nil, err
	}

	if err := w.commit(staged); err != nil {
		discard()
		return nil, err
	}

	paths := make([]string, 0, len(staged))
	for _, s := range staged {
		paths = append(paths, s.final)
		w.logger.Debug().Str("path", s.final).Msg("file written")
	}
	return paths, nil
}

// commit publishes every staged file or none. Existing files are moved to
// backup names first and restored if any rename fails.
func (w *DirWriter) commit(staged []stagedFile) error {
	for i := range staged {
		info, err := os.Lstat(staged[i].final)
		switch {
		case os.IsNotExist(err):
			continue
		case err != nil:
			return fmt.Errorf("stat %s: %w", staged[i].final, err)
		case !info.Mode().IsRegular():
			return fmt.Errorf("%w: %s", ErrNotRegularFile, staged[i].final)
		}
		staged[i].backup = staged[i].tmp + ".bak"
	}

	var moved, published int
	rollback := func() {
		for _, s := range staged[:published] {
			os.Remove(s.final)
		}
		for _, s := range staged[:moved] {
			if s.backup == "" {
				continue
			}
			if err := w.rename(s.backup, s.final); err != nil {
				w.logger.Error().Err(err).Str("path", s.final).Msg("restore previous file")
			}
		}
	}

	for _, s := range staged {
		if s.backup != "" {
			if err := w.rename(s.final, s.backup); err != nil {
				rollback()
				return fmt.Errorf("move aside %s: %w", s.final, err)
			}
		}
		moved++
	}
	for _, s := range staged {
		if err := w.rename(s.tmp, s.final); err != nil {
			rollback()
			return fmt.Errorf("commit %s: %w", s.final, err)
		}
		published++
	}

	for _, s := range staged {
		if s.backup != "" {
			os.Remove(s.backup)
		}
	}
	return nil
}

func (w *DirWriter) stage(name string, fn func(io.Writer) error) (stagedFile, error) {
	f, err := os.CreateTemp(w.dir, "."+name+".*.tmp")
	if err != nil {
		return stagedFile{}, fmt.Errorf("create %s: %w", name, err)
	}
	s := stagedFile{tmp: f.Name(), final: filepath.Join(w.dir, name)}

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		os.Remove(s.tmp)
		return stagedFile{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(s.tmp)
		return stagedFile{}, fmt.Errorf("flush %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(s.tmp)
		return stagedFile{}, fmt.Errorf("close %s: %w", name, err)
	}
	// CreateTemp opens 0600; published files are world-readable.
	if err := os.Chmod(s.tmp, 0o644); err != nil {
		os.Remove(s.tmp)
		return stagedFile{}, fmt.Errorf("chmod %s: %w", name, err)
	}
	return s, nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrOutputDirMissing, dir)
		}
		return fmt.Errorf("stat output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", dir)
	}
	return nil
}
