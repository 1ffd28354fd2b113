// internal/workers/ai-conversation/answer-financial-query/config.go
package answerfinancialquery

import "time"

type Config struct {
	Timeout time.Duration
	// Clock supplies "today" when a job carries no anchor date.
	Clock func() time.Time
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
		Clock:   time.Now,
	}
}
