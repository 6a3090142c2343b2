package model

import "time"

// ProgressTimeLayout is the timestamp format of the checkpoint file
const ProgressTimeLayout = "2006-01-02 15:04:05"

// Progress is the checkpoint written after every lookup.
// LastProcessedIdx is an offset into the pending list of the run that
// wrote it. A resumed run is placed after LastProcessedTerm and falls back
// to LastProcessedIdx+1 when that term has left the input.
type Progress struct {
	TotalTerms        int    `json:"total_terms"`
	ProcessedTerms    int    `json:"processed_terms"`
	RemainingTerms    int    `json:"remaining_terms"`
	SuccessCount      int    `json:"success_count"`
	ErrorCount        int    `json:"error_count"`
	LastProcessedTerm string `json:"last_processed_term"`
	LastProcessedIdx  int    `json:"last_processed_index"`
	Timestamp         string `json:"timestamp"`
}

// Stamp sets the timestamp from t
func (p *Progress) Stamp(t time.Time) {
	p.Timestamp = t.Format(ProgressTimeLayout)
}

// ResumeOffset is the stored offset a resumed run falls back to
func (p *Progress) ResumeOffset() int {
	return p.LastProcessedIdx + 1
}

// CleanReport counts what the cleaner kept and dropped
type CleanReport struct {
	Total      int `json:"total"`
	Malformed  int `json:"malformed"`
	Filtered   int `json:"filtered"`
	Duplicates int `json:"duplicates"`
	Final      int `json:"final"`
}
