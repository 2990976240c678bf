// Package resultlog публикует результаты загрузок, чтобы оркестратор мог
// отслеживать их состояние: Redis (GET/SUBSCRIBE) или Kafka (topic).
package resultlog

import (
	"context"
	"time"
)

// Статусы загрузки
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped" // нераспознанная стратегия: ничего не записано, ошибки нет
)

// Result представляет результат одной операции, публикуемый после ее завершения
// (успешного или с ошибкой)
type Result struct {
	RunID      string    `json:"run_id"`
	Name       string    `json:"name"`
	Operation  string    `json:"operation"` // "write" | "read" | "transfer"
	Backend    string    `json:"backend"`
	Target     string    `json:"target"`
	Strategy   string    `json:"strategy,omitempty"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
	Rows       int       `json:"rows"`
	Error      *string   `json:"error,omitempty"`
}

// SetError заполняет Status и Error по ошибке выполнения
// err == nil означает успешное выполнение
func (r *Result) SetError(err error) {
	if err != nil {
		r.Status = StatusFailed
		msg := err.Error()
		r.Error = &msg
		return
	}
	if r.Status == "" {
		r.Status = StatusSuccess
	}
}

// Publisher публикует результаты
type Publisher interface {
	Publish(ctx context.Context, result Result) error
	Close() error
}

// Nop - Publisher, который ничего не делает
type Nop struct{}

func (Nop) Publish(context.Context, Result) error { return nil }
func (Nop) Close() error { return nil }
