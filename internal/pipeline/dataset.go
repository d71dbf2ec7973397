package pipeline

import (
	"time"

	log "github.com/gologme/log"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
)

// DatasetService runs the filestore-to-dataset workflow: list recent
// spreadsheet files, skip the ones already recorded as ingested, decode the
// rest, drop duplicate rows, append the survivors, and finally compact the
// dataset when anything was added.
type DatasetService struct {
	files   connectors.FileStore
	dataset connectors.Dataset
	index   *StateIndex
	rec     *Reconciler
	cfg     config.Config
	logger  *log.Logger
}

func NewDatasetService(files connectors.FileStore, dataset connectors.Dataset, index *StateIndex, cfg config.Config, logger *log.Logger) *DatasetService {
	return &DatasetService{
		files:   files,
		dataset: dataset,
		index:   index,
		rec:     NewReconciler(index),
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *DatasetService) Run(stats *internal.RunStats) error {
	since := time.Now().AddDate(0, 0, -s.cfg.FilesDaysBack)
	sources, err := s.files.ListSpreadsheets(s.cfg.SpreadsheetFolderID, since, int64(s.cfg.FilesMaxResults))
	if err != nil {
		s.logger.Errorf("list spreadsheet files: %v", err)
		sources = nil
	}
	stats.FilesFound = len(sources)
	s.logger.Infof("found %d spreadsheet files", len(sources))
	if len(sources) == 0 {
		return nil
	}

	values, err := s.dataset.Read(s.cfg.DataRange())
	if err != nil {
		s.logger.Errorf("read dataset: %v", err)
		values = nil
	}
	s.index.SeedDataset(values, s.cfg.POHeaderProbe, s.cfg.SKUHeaderProbe, s.cfg.SourceFileColumn)

	headerPresent := len(values) > 0
	firstFile := true

	for i, source := range sources {
		s.logger.Infof("examining %s (%d/%d)", source.Name, i+1, len(sources))

		if s.rec.ShouldSkipFile(source.Name) {
			s.logger.Infof("skipping %s, already recorded in %s", source.Name, s.cfg.SourceFileColumn)
			stats.FilesSkipped++
			continue
		}

		switch s.ingestFile(source, &firstFile, &headerPresent) {
		case internal.OutcomeAccepted:
			stats.FilesProcessed++
		case internal.OutcomeSkipped:
			stats.FilesSkipped++
		case internal.OutcomeFailed:
			stats.FilesFailed++
		}
	}

	if stats.FilesProcessed > 0 {
		s.logger.Infof("running dataset cleanup")
		stats.DuplicatesRemoved = s.runCleanup()
	}

	s.logger.Infof("dataset workflow done found=%d processed=%d skipped=%d failed=%d",
		stats.FilesFound, stats.FilesProcessed, stats.FilesSkipped, stats.FilesFailed)
	return nil
}

func (s *DatasetService) ingestFile(source internal.SourceFile, firstFile, headerPresent *bool) internal.Outcome {
	blob, err := s.files.Download(source.ID)
	if err != nil {
		s.logger.Errorf("download %s: %v", source.Name, err)
		return internal.OutcomeFailed
	}

	table, err := DecodeSpreadsheet(blob, s.cfg.HeaderRow)
	if err != nil {
		s.logger.Warnf("no data in %s: %v", source.Name, err)
		return internal.OutcomeFailed
	}

	// Record provenance; this column is what the file-level skip keys on.
	table.Headers = append(table.Headers, s.cfg.SourceFileColumn)
	for i := range table.Rows {
		table.Rows[i] = append(table.Rows[i], source.Name)
	}

	poIdx := FindHeaderIndex(table.Headers, s.cfg.POHeaderProbe)
	skuIdx := FindHeaderIndex(table.Headers, s.cfg.SKUHeaderProbe)

	kept := table.Rows
	if poIdx >= 0 && skuIdx >= 0 {
		var dropped int
		kept, dropped = s.rec.FilterRows(table.Rows, poIdx, skuIdx)
		if dropped > 0 {
			s.logger.Infof("filtered %d duplicate rows from %s", dropped, source.Name)
		}
		if len(kept) == 0 {
			s.logger.Infof("all rows from %s already present, skipping", source.Name)
			return internal.OutcomeSkipped
		}
	}

	rows := make([][]any, 0, len(kept)+1)
	if *firstFile && !*headerPresent {
		header := make([]any, len(table.Headers))
		for i, h := range table.Headers {
			header[i] = h
		}
		rows = append(rows, header)
	}
	for _, row := range kept {
		out := make([]any, len(row))
		for i, cell := range row {
			out[i] = cell
		}
		rows = append(rows, out)
	}

	if err := s.dataset.Append(s.cfg.AppendRange(), rows); err != nil {
		s.logger.Errorf("append rows from %s: %v", source.Name, err)
		return internal.OutcomeFailed
	}

	if poIdx >= 0 && skuIdx >= 0 {
		s.rec.CommitRows(kept, poIdx, skuIdx)
	}
	*firstFile = false
	*headerPresent = true

	s.logger.Infof("appended %d new rows from %s", len(kept), source.Name)
	return internal.OutcomeAccepted
}

// runCleanup re-reads the dataset and atomically replaces it with the
// compacted grid. The clear+update pair is the accepted visibility window;
// the destination store offers no transaction.
func (s *DatasetService) runCleanup() int {
	values, err := s.dataset.Read(s.cfg.DataRange())
	if err != nil {
		s.logger.Errorf("cleanup read: %v", err)
		return 0
	}
	if len(values) == 0 {
		return 0
	}

	cleaned, removed := CleanDataset(values, s.cfg.POHeaderProbe, s.cfg.SKUHeaderProbe)
	if cleaned == nil {
		return 0
	}

	if err := s.dataset.Clear(s.cfg.SheetName); err != nil {
		s.logger.Errorf("cleanup clear: %v", err)
		return 0
	}
	if err := s.dataset.Update(s.cfg.AppendRange(), cleaned); err != nil {
		s.logger.Errorf("cleanup rewrite: %v", err)
		return 0
	}

	s.logger.Infof("cleanup removed %d rows", removed)
	return removed
}
