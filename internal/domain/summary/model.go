package summary

import "time"

// Upload statuses counted by the scanner. Any other value is kept in the
// details but contributes only to TotalUploads.
const (
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusInProgress = "in_progress"
)

// SystemSummary is an aggregate snapshot of the whole inventory produced by
// a single scan. It is not mutated after construction.
type SystemSummary struct {
	TotalDatabases      int             `json:"total_databases"`
	TotalUploads        int64           `json:"total_uploads"`
	CompletedUploads    int64           `json:"completed_uploads"`
	FailedUploads       int64           `json:"failed_uploads"`
	InProgressUploads   int64           `json:"in_progress_uploads"`
	TotalNomenclature   int64           `json:"total_nomenclature"`
	TotalCounterparties int64           `json:"total_counterparties"`
	DatabasesProcessed  int             `json:"databases_processed"`
	DatabasesSkipped    int             `json:"databases_skipped"`
	LastActivity        time.Time       `json:"last_activity"`
	ScanDuration        *string         `json:"scan_duration,omitempty"`
	UploadDetails       []UploadSummary `json:"upload_details"`
}

// UploadSummary describes one upload and the database file it produced.
type UploadSummary struct {
	ID                string     `json:"id"`
	UploadUUID        string     `json:"upload_uuid"`
	Name              string     `json:"name"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	DatabaseID        *int       `json:"database_id,omitempty"`
	ClientID          *int       `json:"client_id,omitempty"`
	ProjectID         *int       `json:"project_id,omitempty"`
	DatabaseFile      string     `json:"database_file,omitempty"`
	DatabaseSize      *int64     `json:"database_size,omitempty"`
	NomenclatureCount int64      `json:"nomenclature_count"`
	CounterpartyCount int64      `json:"counterparty_count"`
}

// Recount rebuilds every aggregate counter from details. Counters that only
// make sense for a full scan (processed/skipped) are left at zero.
func Recount(details []UploadSummary) *SystemSummary {
	s := &SystemSummary{UploadDetails: details}
	if s.UploadDetails == nil {
		s.UploadDetails = []UploadSummary{}
	}

	databases := make(map[int]struct{})
	for _, u := range s.UploadDetails {
		s.TotalUploads++
		switch u.Status {
		case StatusCompleted:
			s.CompletedUploads++
		case StatusFailed:
			s.FailedUploads++
		case StatusInProgress:
			s.InProgressUploads++
		}
		s.TotalNomenclature += u.NomenclatureCount
		s.TotalCounterparties += u.CounterpartyCount
		if u.DatabaseID != nil {
			databases[*u.DatabaseID] = struct{}{}
		}
		if u.CreatedAt.After(s.LastActivity) {
			s.LastActivity = u.CreatedAt
		}
		if u.CompletedAt != nil && u.CompletedAt.After(s.LastActivity) {
			s.LastActivity = *u.CompletedAt
		}
	}
	s.TotalDatabases = len(databases)
	return s
}
