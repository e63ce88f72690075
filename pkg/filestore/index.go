package filestore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/marmos91/keepfs/pkg/store/content"
)

// index is the ordered list of registered names.
//
// On disk it is one name per line, rewritten in full on every change. In
// memory it mirrors the key set of Store.entries.
type index struct {
	path  string
	order []string
	pos   map[string]int
}

func newIndex(path string) *index {
	return &index{path: path, pos: make(map[string]int)}
}

// load reads the names stored on disk. A missing file is an empty index.
// Blank lines and duplicates are skipped. The in-memory list is not
// touched: Open re-adds each name once its entry has been loaded.
func (x *index) load(ctx context.Context, files content.ContentStore) ([]string, error) {
	r, err := files.Open(ctx, x.path)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = r.Close() }()

	seen := make(map[string]struct{})
	var names []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		name := strings.TrimRight(sc.Text(), "\r")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", x.path, err)
	}
	return names, nil
}

// save rewrites the index file from the in-memory list.
func (x *index) save(ctx context.Context, files content.ContentStore) error {
	w, err := files.OpenWrite(ctx, x.path)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, name := range x.order {
		b.WriteString(name)
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		_ = w.Abort()
		return fmt.Errorf("failed to write index %s: %w", x.path, err)
	}
	return w.Close()
}

func (x *index) add(name string) {
	if _, ok := x.pos[name]; ok {
		return
	}
	x.pos[name] = len(x.order)
	x.order = append(x.order, name)
}

func (x *index) remove(name string) {
	i, ok := x.pos[name]
	if !ok {
		return
	}
	x.order = append(x.order[:i], x.order[i+1:]...)
	delete(x.pos, name)
	for j := i; j < len(x.order); j++ {
		x.pos[x.order[j]] = j
	}
}

func (x *index) names() []string {
	return append([]string(nil), x.order...)
}
