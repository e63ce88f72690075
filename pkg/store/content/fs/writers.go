package fs

import (
	"errors"
	"fmt"
	"os"
)

var errWriterDone = errors.New("writer already closed")

// createWriter writes straight into a freshly created file. Abort removes it.
type createWriter struct {
	f    *os.File
	done bool
}

func (w *createWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, errWriterDone
	}
	return w.f.Write(p)
}

func (w *createWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("failed to sync %s: %w", w.f.Name(), err)
	}
	return w.f.Close()
}

func (w *createWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	_ = w.f.Close()
	if err := os.Remove(w.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove aborted file: %w", err)
	}
	return nil
}

// replaceWriter writes to a temporary file renamed over target on Close.
type replaceWriter struct {
	f      *os.File
	target string
	done   bool
}

func (w *replaceWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, errWriterDone
	}
	return w.f.Write(p)
}

func (w *replaceWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	tmp := w.f.Name()
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, w.target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", w.target, err)
	}
	return nil
}

func (w *replaceWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	_ = w.f.Close()
	if err := os.Remove(w.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove temporary file: %w", err)
	}
	return nil
}

// appendWriter appends to an existing file. Abort truncates back to the
// size the file had when it was opened.
type appendWriter struct {
	f    *os.File
	size int64
	done bool
}

func (w *appendWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, errWriterDone
	}
	return w.f.Write(p)
}

func (w *appendWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("failed to sync %s: %w", w.f.Name(), err)
	}
	return w.f.Close()
}

func (w *appendWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	truncErr := w.f.Truncate(w.size)
	closeErr := w.f.Close()
	if truncErr != nil {
		return fmt.Errorf("failed to roll back append: %w", truncErr)
	}
	return closeErr
}
