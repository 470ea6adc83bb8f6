package models

// FrequencyPoint represents a single frequency sample of a record
type FrequencyPoint struct {
	Frequency float64 `json:"frequency" doc:"Frequency in Hz"`
	Magnitude float64 `json:"magnitude" doc:"Linear magnitude"`
	Phase     float64 `json:"phase" doc:"Phase in degrees (zero for amplitude-only records)"`
}

// ParseTier names the parser that produced a record.
type ParseTier string

const (
	TierResilient ParseTier = "resilient"
	TierFallback  ParseTier = "fallback"
)

// ParseDiagnostics reports how a record was recovered from its source text.
type ParseDiagnostics struct {
	Tier            ParseTier `json:"tier" enum:"resilient,fallback" doc:"Parser that produced the record"`
	MarkerLine      int       `json:"marker_line" doc:"Zero-based line of the dataset delimiter"`
	PayloadLine     int       `json:"payload_line" doc:"Zero-based line where numeric data starts"`
	ValuesExpected  int       `json:"values_expected" doc:"Ordinate values required by the header"`
	ValuesCollected int       `json:"values_collected" doc:"Ordinate values read from the payload"`
	PaddedValues    int       `json:"padded_values" doc:"Trailing zeros appended to complete the payload"`
	SkippedTokens   int       `json:"skipped_tokens" doc:"Payload tokens that were not numbers"`
	SafetyBoundHit  bool      `json:"safety_bound_hit" doc:"Accumulation stopped at the line safety bound"`
	FilteredBlocks  int       `json:"filtered_blocks,omitempty" doc:"Blocks removed before the fallback reader ran"`
	PrimaryError    string    `json:"primary_error,omitempty" doc:"Why the resilient parser rejected the input"`
}

// LowConfidence reports whether the record was completed by padding or cut short.
func (d ParseDiagnostics) LowConfidence() bool {
	return d.PaddedValues > 0 || d.SafetyBoundHit
}
