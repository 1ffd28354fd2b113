package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"finquery-workers/internal/common/config"
	"finquery-workers/internal/common/errors"
	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/models"
)

const defaultMaxDocuments = 1000

// ElasticsearchArtifactSource reads each artifact kind from its own index.
type ElasticsearchArtifactSource struct {
	client  *elasticsearch.Client
	indices map[Kind]string
	size    int
	log     logger.Logger
}

func NewElasticsearchArtifactSource(client *elasticsearch.Client, cfg config.ArtifactsConfig, log logger.Logger) *ElasticsearchArtifactSource {
	size := cfg.MaxDocuments
	if size <= 0 {
		size = defaultMaxDocuments
	}
	return &ElasticsearchArtifactSource{
		client: client,
		indices: map[Kind]string{
			KindMovement: orDefault(cfg.MovementsIndex, "finquery-movements"),
			KindAnomaly:  orDefault(cfg.AnomaliesIndex, "finquery-anomalies"),
			KindChart:    orDefault(cfg.ChartsIndex, "finquery-charts"),
		},
		size: size,
		log:  log,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchArtifactSource) LoadArtifacts(ctx context.Context) (models.ArtifactSet, error) {
	var f artifactFile
	for _, kind := range Kinds {
		docs, err := s.search(ctx, s.indices[kind])
		if err != nil {
			return models.ArtifactSet{}, err
		}
		switch kind {
		case KindMovement:
			f.Movements = docs
		case KindAnomaly:
			f.Anomalies = docs
		case KindChart:
			f.Charts = docs
		}
	}

	set, err := decodeArtifacts(f)
	if err != nil {
		return models.ArtifactSet{}, err
	}
	s.log.Debug("Artifacts loaded from elasticsearch", map[string]interface{}{
		"movements": len(set.Movements),
		"anomalies": len(set.Anomalies),
		"charts":    len(set.Charts),
	})
	return set, nil
}

func (s *ElasticsearchArtifactSource) search(ctx context.Context, index string) ([]json.RawMessage, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []interface{}{map[string]interface{}{"id.keyword": map[string]interface{}{"order": "asc", "unmapped_type": "keyword"}}},
	})
	size := s.size
	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, errors.NewIndexNotFoundError(index)
	}
	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(index, fmt.Errorf("%s", res.String()))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewSearchQueryFailedError(index, err)
	}

	docs := make([]json.RawMessage, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
