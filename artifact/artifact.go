// Package artifact stores the outputs of one exchange as text files:
// <stem>.priv and <stem>.pub once keys exist, <stem>.shared at the end.
package artifact

import (
	"os"
	"path/filepath"

	log "github.com/Lafeng/keyx/glog"
	"github.com/moby/sys/atomicwriter"
	"github.com/pkg/errors"
)

const (
	EXT_PRIVATE = ".priv"
	EXT_PUBLIC  = ".pub"
	EXT_SHARED  = ".shared"
)

// Writer implements exchange.Sink on a directory. Every file is replaced
// atomically, readers never see a partial one.
type Writer struct {
	dir  string
	stem string
}

func NewWriter(dir, stem string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, stem: stem}
}

func (w *Writer) Path(ext string) string {
	return filepath.Join(w.dir, w.stem+ext)
}

// Begin removes the session key of an earlier run, so a failing run
// leaves none behind.
func (w *Writer) Begin() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	err := os.Remove(w.Path(EXT_SHARED))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove stale session key")
	}
	return nil
}

func (w *Writer) WriteKeys(privateText, publicText string) error {
	if err := w.write(EXT_PRIVATE, privateText, 0600); err != nil {
		return err
	}
	return w.write(EXT_PUBLIC, publicText, 0644)
}

func (w *Writer) WriteSessionKey(hexDigest string) error {
	return w.write(EXT_SHARED, hexDigest, 0600)
}

func (w *Writer) write(ext, text string, perm os.FileMode) error {
	file := w.Path(ext)
	if err := atomicwriter.WriteFile(file, []byte(text), perm); err != nil {
		return errors.Wrapf(err, "write %s", file)
	}
	if log.V(log.LV_SESSION) {
		log.Infoln("Saved", file)
	}
	return nil
}
