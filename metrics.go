package dataoracle

import "time"

// ItemError is one per-target failure recorded in the run's error list.
type ItemError struct {
	Target  string    `json:"target"`
	Kind    ErrorKind `json:"error_kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// RunMetrics aggregates the outcome of one ingestion run. Counter merging is
// commutative, so per-source partials can be combined in any order.
type RunMetrics struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	State      State     `json:"state"`

	SourcesProcessed       int `json:"sources_processed"`
	TargetsAttempted       int `json:"targets_attempted"`
	TargetsSucceeded       int `json:"targets_succeeded"`
	TargetsFailed          int `json:"targets_failed"`
	TargetsSkipped         int `json:"targets_skipped"`
	ConceptsCreated        int `json:"concepts_created"`
	ConceptsUpdated        int `json:"concepts_updated"`
	InterpretationsCreated int `json:"interpretations_created"`
	InterpretationsUpdated int `json:"interpretations_updated"`
	RelationshipsCreated   int `json:"relationships_created"`
	SynthesesCreated       int `json:"syntheses_created"`
	LineagesCreated        int `json:"lineages_created"`

	Errors []ItemError `json:"errors"`

	// AverageQuality is the mean quality score of stored extractions.
	AverageQuality float64       `json:"average_quality"`
	Duration       time.Duration `json:"duration"`

	qualityTotal float64
	qualityCount int
}

// merge folds a per-source partial into the run totals.
func (m *RunMetrics) merge(p *RunMetrics) {
	m.SourcesProcessed += p.SourcesProcessed
	m.TargetsAttempted += p.TargetsAttempted
	m.TargetsSucceeded += p.TargetsSucceeded
	m.TargetsFailed += p.TargetsFailed
	m.TargetsSkipped += p.TargetsSkipped
	m.ConceptsCreated += p.ConceptsCreated
	m.ConceptsUpdated += p.ConceptsUpdated
	m.InterpretationsCreated += p.InterpretationsCreated
	m.InterpretationsUpdated += p.InterpretationsUpdated
	m.RelationshipsCreated += p.RelationshipsCreated
	m.SynthesesCreated += p.SynthesesCreated
	m.LineagesCreated += p.LineagesCreated
	m.Errors = append(m.Errors, p.Errors...)
	m.qualityTotal += p.qualityTotal
	m.qualityCount += p.qualityCount
}

// recordError appends a structured per-item error and bumps the failure count.
func (m *RunMetrics) recordError(target string, kind ErrorKind, err error) {
	m.TargetsFailed++
	m.Errors = append(m.Errors, ItemError{
		Target:  target,
		Kind:    kind,
		Message: err.Error(),
		At:      time.Now(),
	})
}

// recordQuality feeds one stored extraction's score into the aggregate.
func (m *RunMetrics) recordQuality(score float64) {
	m.qualityTotal += score
	m.qualityCount++
}

// finalize stamps the end time and computes derived values.
func (m *RunMetrics) finalize(state State) {
	m.State = state
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	if m.qualityCount > 0 {
		m.AverageQuality = m.qualityTotal / float64(m.qualityCount)
	}
}

// Succeeded reports whether the run meets the exit-status contract:
// completed with at least one source processed and no systemic failure.
func (m *RunMetrics) Succeeded() bool {
	return m.State == StateCompleted && m.SourcesProcessed > 0
}
