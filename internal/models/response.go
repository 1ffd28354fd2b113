// internal/models/response.go
package models

import "time"

// QueryResponse is the terminal output of one turn.
type QueryResponse struct {
	Text                  string    `json:"text"`
	ReferencedArtifactIDs []string  `json:"referencedArtifactIds"`
	Intent                Intent    `json:"intent"`
	ErrorCode             string    `json:"errorCode,omitempty"`
	Timestamp             time.Time `json:"timestamp"`
}
