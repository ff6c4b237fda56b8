package skibbadb

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/syssam/skibbadb/schema"
)

// SchemaWatcher watches a directory of declarative YAML schema files
// (schema.LoadDescriptor) and re-registers the corresponding collection
// whenever one changes, so a schema edit on disk takes effect without a
// process restart. Registration
// always runs in MigrationPrint mode while watching, since an unattended
// directory edit should never silently apply a breaking migration.
type SchemaWatcher struct {
	db  *Database
	w   *fsnotify.Watcher
	dir string
}

// WatchSchemaDir starts watching dir for *.yaml/*.yml changes. Each file's
// base name (without extension) is used as the collection name. The
// caller must call Close to stop watching.
func WatchSchemaDir(db *Database, dir string) (*SchemaWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, NewDatabaseError(ConnectionCreateFailed, "failed to start schema watcher", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, NewDatabaseError(ConnectionCreateFailed, "failed to watch schema directory", err)
	}
	sw := &SchemaWatcher{db: db, w: w, dir: dir}
	go sw.loop()
	return sw, nil
}

func (sw *SchemaWatcher) loop() {
	for {
		select {
		case ev, ok := <-sw.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isSchemaFile(ev.Name) {
				continue
			}
			sw.reload(ev.Name)
		case err, ok := <-sw.w.Errors:
			if !ok {
				return
			}
			slog.Warn("schema watcher error", "error", err)
		}
	}
}

func (sw *SchemaWatcher) reload(path string) {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("schema watcher: open file", "path", path, "error", err)
		return
	}
	defer f.Close()

	d, err := schema.LoadDescriptor(f)
	if err != nil {
		slog.Warn("schema watcher: parse schema", "path", path, "error", err)
		return
	}

	name := collectionNameFromPath(path)
	if sw.db.migrator != nil {
		prior := sw.db.migrator.mode
		sw.db.migrator.mode = MigrationPrint
		defer func() { sw.db.migrator.mode = prior }()
	}
	if _, err := sw.db.RegisterCollection(context.Background(), name, d, 0); err != nil {
		slog.Warn("schema watcher: plan collection", "collection", name, "error", err)
	}
}

// Close stops the watcher.
func (sw *SchemaWatcher) Close() error { return sw.w.Close() }

func isSchemaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func collectionNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
