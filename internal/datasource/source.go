// Package datasource loads the ledger and the detector artifacts the query engine answers from.
package datasource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/models"
)

// RecordSource yields ledger transactions.
type RecordSource interface {
	LoadRecords(ctx context.Context) ([]models.FinancialRecord, error)
}

// ArtifactSource yields movement, anomaly and chart artifacts.
type ArtifactSource interface {
	LoadArtifacts(ctx context.Context) (models.ArtifactSet, error)
}

// Load assembles a Dataset. An empty version is derived from the loaded content.
func Load(ctx context.Context, records RecordSource, artifacts ArtifactSource, version string, log logger.Logger) (*models.Dataset, error) {
	recs, err := records.LoadRecords(ctx)
	if err != nil {
		return nil, err
	}

	var set models.ArtifactSet
	if artifacts != nil {
		if set, err = artifacts.LoadArtifacts(ctx); err != nil {
			return nil, err
		}
	}

	if version == "" {
		version = VersionOf(recs, set)
	}

	log.Info("Dataset loaded", map[string]interface{}{
		"version":   version,
		"records":   len(recs),
		"accounts":  len(models.AccountsOf(recs)),
		"movements": len(set.Movements),
		"anomalies": len(set.Anomalies),
		"charts":    len(set.Charts),
	})

	return &models.Dataset{Version: version, Records: recs, Artifacts: set}, nil
}

// VersionOf fingerprints the dataset so cached responses never outlive the data they describe.
func VersionOf(records []models.FinancialRecord, set models.ArtifactSet) string {
	h := sha256.New()
	for _, r := range records {
		fmt.Fprintf(h, "%s|%s|%s|%s\n", r.Date.Format(models.DateLayout), r.Account, r.Amount.String(), r.Description)
	}
	for _, m := range set.Movements {
		fmt.Fprintf(h, "m|%s|%s|%s\n", m.ID, m.Account, m.Delta.String())
	}
	for _, a := range set.Anomalies {
		fmt.Fprintf(h, "a|%s|%s\n", a.ID, a.Account)
	}
	for _, c := range set.Charts {
		fmt.Fprintf(h, "c|%s\n", c.ID)
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
