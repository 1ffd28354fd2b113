package datasource

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"finquery-workers/internal/common/errors"
)

// Kind names an artifact document type.
type Kind string

const (
	KindMovement Kind = "movement"
	KindAnomaly  Kind = "anomaly"
	KindChart    Kind = "chart"
)

// Kinds lists every artifact kind in load order.
var Kinds = []Kind{KindMovement, KindAnomaly, KindChart}

//go:embed schemas/*.json
var schemaFS embed.FS

var schemas = mustLoadSchemas()

func mustLoadSchemas() map[Kind]*gojsonschema.Schema {
	out := make(map[Kind]*gojsonschema.Schema, len(Kinds))
	for _, kind := range Kinds {
		raw, err := schemaFS.ReadFile("schemas/" + string(kind) + ".json")
		if err != nil {
			panic(fmt.Sprintf("missing schema for %s: %v", kind, err))
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("invalid schema for %s: %v", kind, err))
		}
		out[kind] = schema
	}
	return out
}

// Schema returns the raw JSON schema for kind.
func Schema(kind Kind) ([]byte, error) {
	return schemaFS.ReadFile("schemas/" + string(kind) + ".json")
}

// ValidateDocument checks one artifact document against its schema.
func ValidateDocument(kind Kind, doc []byte) error {
	schema, ok := schemas[kind]
	if !ok {
		return errors.NewArtifactValidationFailedError(fmt.Sprintf("unknown artifact kind %q", kind))
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errors.NewArtifactValidationFailedError(fmt.Sprintf("%s: %v", kind, err))
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.NewArtifactValidationFailedError(fmt.Sprintf("%s: %s", kind, strings.Join(msgs, "; ")))
	}
	return nil
}
