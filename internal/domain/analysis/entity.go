package analysis

import (
	"time"
)

// EventID tipe untuk AnalysisEvent, di-assign oleh HistoryStore
type EventID int64

// Severity enum
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// BackendFallback is recorded on events whose diagnosis came from the fallback document.
const BackendFallback = "fallback"

// Event is one completed diagnosis interaction. Never updated once appended.
type Event struct {
	ID            EventID   `json:"id"`
	Identity      string    `json:"identity"`
	InputText     string    `json:"input_text"`
	DiagnosisText string    `json:"diagnosis_text"`
	Severity      Severity  `json:"severity"`
	Title         string    `json:"title"`
	Backend       string    `json:"backend,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
