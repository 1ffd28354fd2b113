package datasource

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finquery-workers/internal/models"

	"github.com/shopspring/decimal"
)

// recordDoc is the file form of a ledger row. Pointers distinguish missing from zero.
type recordDoc struct {
	Date        string           `json:"date"`
	Account     string           `json:"account"`
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
}

// artifactFile is the on-disk layout of an artifact bundle.
type artifactFile struct {
	Movements []json.RawMessage `json:"movements"`
	Anomalies []json.RawMessage `json:"anomalies"`
	Charts    []json.RawMessage `json:"charts"`
}

// normalizeAccount trims and collapses inner whitespace.
func normalizeAccount(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (d recordDoc) toRecord() (models.FinancialRecord, error) {
	account := normalizeAccount(d.Account)
	if d.Date == "" || account == "" || d.Amount == nil {
		return models.FinancialRecord{}, fmt.Errorf("record requires date, account and amount")
	}
	date, err := time.Parse(models.DateLayout, d.Date)
	if err != nil {
		return models.FinancialRecord{}, fmt.Errorf("invalid date %q: %w", d.Date, err)
	}
	return models.FinancialRecord{
		Date:        date,
		Account:     account,
		Amount:      *d.Amount,
		Description: strings.TrimSpace(d.Description),
	}, nil
}

func decodeMovement(raw json.RawMessage) (models.MovementRecord, error) {
	if err := ValidateDocument(KindMovement, raw); err != nil {
		return models.MovementRecord{}, err
	}
	var m models.MovementRecord
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.MovementRecord{}, fmt.Errorf("decode movement: %w", err)
	}
	m.Account = normalizeAccount(m.Account)
	return m, nil
}

func decodeAnomaly(raw json.RawMessage) (models.AnomalyRecord, error) {
	if err := ValidateDocument(KindAnomaly, raw); err != nil {
		return models.AnomalyRecord{}, err
	}
	var a models.AnomalyRecord
	if err := json.Unmarshal(raw, &a); err != nil {
		return models.AnomalyRecord{}, fmt.Errorf("decode anomaly: %w", err)
	}
	a.Account = normalizeAccount(a.Account)
	return a, nil
}

func decodeChart(raw json.RawMessage) (models.ChartRef, error) {
	if err := ValidateDocument(KindChart, raw); err != nil {
		return models.ChartRef{}, err
	}
	var c models.ChartRef
	if err := json.Unmarshal(raw, &c); err != nil {
		return models.ChartRef{}, fmt.Errorf("decode chart: %w", err)
	}
	c.Account = normalizeAccount(c.Account)
	return c, nil
}

// decodeArtifacts validates and decodes every document; the first invalid one aborts.
func decodeArtifacts(f artifactFile) (models.ArtifactSet, error) {
	set := models.ArtifactSet{
		Movements: make([]models.MovementRecord, 0, len(f.Movements)),
		Anomalies: make([]models.AnomalyRecord, 0, len(f.Anomalies)),
		Charts:    make([]models.ChartRef, 0, len(f.Charts)),
	}
	for _, raw := range f.Movements {
		m, err := decodeMovement(raw)
		if err != nil {
			return models.ArtifactSet{}, err
		}
		set.Movements = append(set.Movements, m)
	}
	for _, raw := range f.Anomalies {
		a, err := decodeAnomaly(raw)
		if err != nil {
			return models.ArtifactSet{}, err
		}
		set.Anomalies = append(set.Anomalies, a)
	}
	for _, raw := range f.Charts {
		c, err := decodeChart(raw)
		if err != nil {
			return models.ArtifactSet{}, err
		}
		set.Charts = append(set.Charts, c)
	}
	return set, nil
}
