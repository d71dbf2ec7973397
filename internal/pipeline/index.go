package pipeline

import (
	"strings"

	log "github.com/gologme/log"

	"grnflow/internal/connectors"
	"grnflow/internal/util"
)

// StateIndex is the in-memory picture of remote state for one run: stored
// file names per folder, content keys already in the dataset, and source
// files already recorded as ingested. It is a lower bound on true remote
// state at build time and only ever grows during a run, so a run never
// re-admits a duplicate it accepted earlier. Rebuilt every run, never
// persisted; the remote stores stay the source of truth.
type StateIndex struct {
	files  connectors.FileStore
	logger *log.Logger

	storedNames map[string]map[string]struct{}
	contentKeys map[string]struct{}
	sourceFiles map[string]struct{}
}

func NewStateIndex(files connectors.FileStore, logger *log.Logger) *StateIndex {
	return &StateIndex{
		files:       files,
		logger:      logger,
		storedNames: map[string]map[string]struct{}{},
		contentKeys: map[string]struct{}{},
		sourceFiles: map[string]struct{}{},
	}
}

// folderNames returns the full name set for a folder, paginating the remote
// listing to completion and caching the result for the rest of the run.
// A listing error yields an empty set: logged, treated as found-nothing.
func (x *StateIndex) folderNames(folderID string) map[string]struct{} {
	if cached, ok := x.storedNames[folderID]; ok {
		return cached
	}

	names := map[string]struct{}{}
	pageToken := ""
	for {
		page, err := x.files.List(folderID, pageToken)
		if err != nil {
			x.logger.Errorf("list folder %s: %v", folderID, err)
			break
		}
		for _, name := range page.Names {
			names[name] = struct{}{}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	x.storedNames[folderID] = names
	x.logger.Debugf("indexed %d existing files in folder %s", len(names), folderID)
	return names
}

func (x *StateIndex) HasStoredName(folderID, name string) bool {
	_, ok := x.folderNames(folderID)[name]
	return ok
}

func (x *StateIndex) AddStoredName(folderID, name string) {
	x.folderNames(folderID)[name] = struct{}{}
}

// InvalidateFolder drops the cached listing for a folder. Called when a new
// subfolder is created under it, since the creation can shadow a prior miss.
// Only the immediate parent is invalidated.
func (x *StateIndex) InvalidateFolder(folderID string) {
	delete(x.storedNames, folderID)
}

// SeedDataset builds the content-key and processed-source-file sets from a
// full dataset read. Tolerates zero rows and unrecognizable headers.
func (x *StateIndex) SeedDataset(values [][]string, poProbe, skuProbe, sourceProbe string) {
	x.contentKeys = BuildContentKeyIndex(values, poProbe, skuProbe)
	if len(values) > 0 && len(x.contentKeys) == 0 {
		x.logger.Infof("no %s/%s key columns recognized in dataset headers", poProbe, skuProbe)
	}
	x.sourceFiles = BuildSourceFileIndex(values, sourceProbe)
	x.logger.Infof("indexed %d content keys, %d processed source files", len(x.contentKeys), len(x.sourceFiles))
}

func (x *StateIndex) HasContentKey(key string) bool {
	_, ok := x.contentKeys[key]
	return ok
}

func (x *StateIndex) AddContentKey(key string) {
	x.contentKeys[key] = struct{}{}
}

func (x *StateIndex) HasSourceFile(name string) bool {
	_, ok := x.sourceFiles[strings.TrimSpace(name)]
	return ok
}

// FindHeaderIndex locates the first header containing probe, case-insensitive.
func FindHeaderIndex(headers []string, probe string) int {
	probe = strings.ToLower(probe)
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h), probe) {
			return i
		}
	}
	return -1
}

// BuildContentKeyIndex computes the content key of every dataset row. The PO
// and SKU columns are located by case-insensitive substring match on the
// header row, first match wins for each. Rows where either side is blank are
// skipped. An empty dataset or unrecognizable headers yield an empty set.
func BuildContentKeyIndex(values [][]string, poProbe, skuProbe string) map[string]struct{} {
	out := map[string]struct{}{}
	if len(values) == 0 {
		return out
	}

	headers := values[0]
	poIdx := FindHeaderIndex(headers, poProbe)
	skuIdx := FindHeaderIndex(headers, skuProbe)
	if poIdx < 0 || skuIdx < 0 {
		return out
	}

	for _, row := range values[1:] {
		if key, ok := ContentKey(row, poIdx, skuIdx); ok {
			out[key] = struct{}{}
		}
	}
	return out
}

// BuildSourceFileIndex collects the distinct non-blank values of the
// source_file_name column. An absent column yields an empty set; datasets
// created before the column existed must still work.
func BuildSourceFileIndex(values [][]string, probe string) map[string]struct{} {
	out := map[string]struct{}{}
	if len(values) == 0 {
		return out
	}

	idx := FindHeaderIndex(values[0], probe)
	if idx < 0 {
		return out
	}

	for _, row := range values[1:] {
		if idx >= len(row) {
			continue
		}
		name := util.CleanCell(row[idx])
		if name != "" {
			out[name] = struct{}{}
		}
	}
	return out
}
