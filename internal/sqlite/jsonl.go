package sqlite

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Data file names inside DataDir.
const (
	dbFile          = "twentyq.db"
	attributesJSONL = "attributes.jsonl"
	entitiesJSONL   = "entities.jsonl"
)

// jsonlFiles lists every JSONL file created on first attach.
var jsonlFiles = []string{attributesJSONL, entitiesJSONL}

// A save stages each file as <name>.next, then writes commitMarker. The
// marker is the commit point: with it, the staged files are the dataset and
// are renamed into place; without it, they are discarded.
const (
	stagedSuffix = ".next"
	commitMarker = "save.commit"
)

// maxLineBytes bounds one JSONL record; an entity with many attributes can
// exceed bufio's 64KiB default.
const maxLineBytes = 4 << 20

// readJSONL decodes every line of a JSONL file into a T. Blank lines and
// lines that do not decode into T are skipped. A missing file reads as empty.
func readJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL replaces path with one JSON line per record. The file is built
// in a temp file in the same directory, synced, then renamed over path, so
// readers see either the old or the new contents.
func writeJSONL[T any](path string, records []T) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// initJSONLFiles creates any missing data file as an empty file.
func initJSONLFiles(dataDir string) error {
	for _, name := range jsonlFiles {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", name, err)
		}
		if err := writeJSONL[attributeJSON](path, nil); err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
	}
	return nil
}

func stagedPath(dataDir, name string) string {
	return filepath.Join(dataDir, name+stagedSuffix)
}

// stageSave writes both data files and the commit marker without touching
// the published files. On error nothing staged is left behind.
func stageSave(dataDir string, attrs []attributeJSON, entities []entityJSON) (err error) {
	defer func() {
		if err != nil {
			discardStaged(dataDir)
		}
	}()

	for _, name := range jsonlFiles {
		if err := checkPublishable(filepath.Join(dataDir, name)); err != nil {
			return err
		}
	}
	if err := writeJSONL(stagedPath(dataDir, entitiesJSONL), entities); err != nil {
		return fmt.Errorf("staging %s: %w", entitiesJSONL, err)
	}
	if err := writeJSONL(stagedPath(dataDir, attributesJSONL), attrs); err != nil {
		return fmt.Errorf("staging %s: %w", attributesJSONL, err)
	}
	marker := []commitJSON{{SavedAt: time.Now().UTC(), Entities: len(entities), Attributes: len(attrs)}}
	if err := writeJSONL(filepath.Join(dataDir, commitMarker), marker); err != nil {
		return fmt.Errorf("writing commit marker: %w", err)
	}
	return nil
}

// checkPublishable fails when path exists and a rename could not replace it.
func checkPublishable(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}

// publishStaged renames staged files over the published ones and removes
// the marker last. A staged file that is already gone was published by an
// earlier, interrupted call.
func publishStaged(dataDir string) error {
	for _, name := range jsonlFiles {
		err := os.Rename(stagedPath(dataDir, name), filepath.Join(dataDir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("publishing %s: %w", name, err)
		}
	}
	if err := os.Remove(filepath.Join(dataDir, commitMarker)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing commit marker: %w", err)
	}
	return nil
}

// discardStaged removes the marker first so an interruption never leaves a
// marker pointing at missing staged files.
func discardStaged(dataDir string) {
	_ = os.Remove(filepath.Join(dataDir, commitMarker))
	for _, name := range jsonlFiles {
		_ = os.Remove(stagedPath(dataDir, name))
	}
}

// recoverStaged settles a save that was interrupted: committed saves are
// published, uncommitted ones are dropped.
func recoverStaged(dataDir string) error {
	_, err := os.Stat(filepath.Join(dataDir, commitMarker))
	switch {
	case err == nil:
		return publishStaged(dataDir)
	case errors.Is(err, fs.ErrNotExist):
		discardStaged(dataDir)
		return nil
	default:
		return fmt.Errorf("checking commit marker: %w", err)
	}
}
