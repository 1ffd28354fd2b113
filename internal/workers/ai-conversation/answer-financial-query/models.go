// internal/workers/ai-conversation/answer-financial-query/models.go
package answerfinancialquery

import "finquery-workers/internal/models"

type Input struct {
	SessionID  string `json:"sessionId"`
	Question   string `json:"question"`
	Turn       int    `json:"turn"`
	AnchorDate string `json:"anchorDate"`
	EndSession bool   `json:"endSession"`
}

type Output struct {
	SessionID  string               `json:"sessionId"`
	NewSession bool                 `json:"newSession"`
	TurnCount  int                  `json:"turnCount"`
	Response   models.QueryResponse `json:"response"`
}

// inputSchema is checked against raw job variables before decoding.
var inputSchema = []byte(`{
	"type": "object",
	"required": ["question"],
	"properties": {
		"sessionId": {"type": "string", "maxLength": 128},
		"question": {"type": "string", "minLength": 1, "maxLength": 2000},
		"turn": {"type": "integer", "minimum": 0},
		"anchorDate": {"type": "string", "pattern": "^([0-9]{4}-[0-9]{2}-[0-9]{2})?$"},
		"endSession": {"type": "boolean"}
	}
}`)
