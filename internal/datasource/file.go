package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"finquery-workers/internal/common/errors"
	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/models"
)

// FileRecordSource reads ledger rows from a JSON array on disk.
type FileRecordSource struct {
	path string
	log  logger.Logger
}

func NewFileRecordSource(path string, log logger.Logger) *FileRecordSource {
	return &FileRecordSource{path: path, log: log}
}

func (s *FileRecordSource) LoadRecords(ctx context.Context) ([]models.FinancialRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.NewDatasetLoadFailedError(s.path, err)
	}
	records, skipped, err := ParseRecords(data)
	if err != nil {
		return nil, errors.NewDatasetLoadFailedError(s.path, err)
	}
	if skipped > 0 {
		s.log.Warn("Skipped incomplete ledger rows", map[string]interface{}{
			"path":    s.path,
			"skipped": skipped,
		})
	}
	return records, nil
}

// ParseRecords decodes a JSON array of rows, dropping rows without a date, account or amount.
func ParseRecords(data []byte) ([]models.FinancialRecord, int, error) {
	var docs []recordDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode records: %w", err)
	}
	records := make([]models.FinancialRecord, 0, len(docs))
	skipped := 0
	for _, d := range docs {
		r, err := d.toRecord()
		if err != nil {
			skipped++
			continue
		}
		records = append(records, r)
	}
	sortRecords(records)
	return records, skipped, nil
}

func sortRecords(records []models.FinancialRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
}

// FileArtifactSource reads an artifact bundle: {"movements": [...], "anomalies": [...], "charts": [...]}.
type FileArtifactSource struct {
	path string
}

func NewFileArtifactSource(path string) *FileArtifactSource {
	return &FileArtifactSource{path: path}
}

func (s *FileArtifactSource) LoadArtifacts(ctx context.Context) (models.ArtifactSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.ArtifactSet{}, errors.NewDatasetLoadFailedError(s.path, err)
	}
	return ParseArtifacts(data)
}

// ParseArtifacts validates every document in the bundle against its schema before decoding.
func ParseArtifacts(data []byte) (models.ArtifactSet, error) {
	var f artifactFile
	if err := json.Unmarshal(data, &f); err != nil {
		return models.ArtifactSet{}, errors.NewArtifactValidationFailedError(fmt.Sprintf("decode bundle: %v", err))
	}
	return decodeArtifacts(f)
}
