package pipeline

// Reconciler partitions candidate attachments and parsed rows into new versus
// duplicate against the StateIndex. Two layers, cheapest first: a file whose
// name is already recorded as ingested is skipped before any download or
// parse; only then are individual row content keys consulted.
type Reconciler struct {
	index *StateIndex
}

func NewReconciler(index *StateIndex) *Reconciler {
	return &Reconciler{index: index}
}

// ShouldStoreAttachment reports whether an attachment with the given stored
// key is absent from the folder and should be uploaded.
func (r *Reconciler) ShouldStoreAttachment(folderID, key string) bool {
	return !r.index.HasStoredName(folderID, key)
}

// CommitAttachment records a successful upload so a second identical
// attachment later in the same run is skipped.
func (r *Reconciler) CommitAttachment(folderID, key string) {
	r.index.AddStoredName(folderID, key)
}

// ShouldSkipFile reports whether a source file was already fully ingested,
// by name, into the dataset.
func (r *Reconciler) ShouldSkipFile(name string) bool {
	return r.index.HasSourceFile(name)
}

// FilterRows returns the rows whose content key is not yet present, in input
// order, and the count dropped. Rows with a blank key are dropped too.
// Duplicates within the batch itself are caught by a local seen set; the
// shared index is only updated by CommitRows after the rows are durably
// appended, keeping the index a lower bound on remote state.
func (r *Reconciler) FilterRows(rows [][]string, poIdx, skuIdx int) (kept [][]string, dropped int) {
	seen := map[string]struct{}{}
	kept = make([][]string, 0, len(rows))
	for _, row := range rows {
		key, ok := ContentKey(row, poIdx, skuIdx)
		if !ok {
			dropped++
			continue
		}
		if r.index.HasContentKey(key) {
			dropped++
			continue
		}
		if _, dup := seen[key]; dup {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	return kept, dropped
}

// CommitRows registers the content keys of appended rows. Must run before the
// next file is examined so cross-file duplicates within one run are caught.
func (r *Reconciler) CommitRows(rows [][]string, poIdx, skuIdx int) {
	for _, row := range rows {
		if key, ok := ContentKey(row, poIdx, skuIdx); ok {
			r.index.AddContentKey(key)
		}
	}
}
