package datasource

import (
	"database/sql"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"finquery-workers/internal/common/config"
	"finquery-workers/internal/common/logger"
)

// NewRecordSource picks the ledger source named by cfg.Source. db may be nil for file sources.
func NewRecordSource(cfg config.DatasetConfig, db *sql.DB, log logger.Logger) (RecordSource, error) {
	switch cfg.Source {
	case config.DatasetSourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("dataset source %q requires a postgres connection", cfg.Source)
		}
		return NewPostgresRecordSource(db, cfg.Table, log)
	case config.DatasetSourceFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("dataset source %q requires a path", cfg.Source)
		}
		return NewFileRecordSource(cfg.Path, log), nil
	}
	return nil, fmt.Errorf("unknown dataset source %q", cfg.Source)
}

// NewArtifactSource picks the artifact source named by cfg.Source. A nil source means no artifacts.
func NewArtifactSource(cfg config.ArtifactsConfig, es *elasticsearch.Client, log logger.Logger) (ArtifactSource, error) {
	switch cfg.Source {
	case config.ArtifactSourceElasticsearch:
		if es == nil {
			return nil, fmt.Errorf("artifact source %q requires an elasticsearch client", cfg.Source)
		}
		return NewElasticsearchArtifactSource(es, cfg, log), nil
	case config.ArtifactSourceFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("artifact source %q requires a path", cfg.Source)
		}
		return NewFileArtifactSource(cfg.Path), nil
	case config.ArtifactSourceNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown artifact source %q", cfg.Source)
}
