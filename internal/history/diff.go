package history

import "github.com/rpggio/inventory/internal/domain/summary"

// ScanDiff holds signed deltas (newer minus older) between two summaries and
// the uploads that only the newer one contains.
type ScanDiff struct {
	OldScanID int64 `json:"old_scan_id,omitempty"`
	NewScanID int64 `json:"new_scan_id,omitempty"`

	TotalDatabasesChange      int   `json:"total_databases_change"`
	TotalUploadsChange        int64 `json:"total_uploads_change"`
	CompletedUploadsChange    int64 `json:"completed_uploads_change"`
	FailedUploadsChange       int64 `json:"failed_uploads_change"`
	InProgressUploadsChange   int64 `json:"in_progress_uploads_change"`
	TotalNomenclatureChange   int64 `json:"total_nomenclature_change"`
	TotalCounterpartiesChange int64 `json:"total_counterparties_change"`

	NewUploads      []summary.UploadSummary `json:"new_uploads"`
	NewUploadsCount int                     `json:"new_uploads_count"`
}

// CompareScans diffs two summaries. Uploads are matched by UploadUUID only,
// so changes inside an upload both summaries know about are not reported.
// A nil summary compares as an empty one.
func CompareScans(older, newer *summary.SystemSummary) ScanDiff {
	if older == nil {
		older = &summary.SystemSummary{}
	}
	if newer == nil {
		newer = &summary.SystemSummary{}
	}

	diff := ScanDiff{
		TotalDatabasesChange:      newer.TotalDatabases - older.TotalDatabases,
		TotalUploadsChange:        newer.TotalUploads - older.TotalUploads,
		CompletedUploadsChange:    newer.CompletedUploads - older.CompletedUploads,
		FailedUploadsChange:       newer.FailedUploads - older.FailedUploads,
		InProgressUploadsChange:   newer.InProgressUploads - older.InProgressUploads,
		TotalNomenclatureChange:   newer.TotalNomenclature - older.TotalNomenclature,
		TotalCounterpartiesChange: newer.TotalCounterparties - older.TotalCounterparties,
		NewUploads:                []summary.UploadSummary{},
	}

	known := make(map[string]struct{}, len(older.UploadDetails))
	for _, u := range older.UploadDetails {
		known[u.UploadUUID] = struct{}{}
	}
	for _, u := range newer.UploadDetails {
		if _, ok := known[u.UploadUUID]; !ok {
			diff.NewUploads = append(diff.NewUploads, u)
		}
	}
	diff.NewUploadsCount = len(diff.NewUploads)
	return diff
}
