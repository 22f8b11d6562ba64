package mcp

import (
	"time"

	"github.com/rpggio/inventory/internal/cache"
	"github.com/rpggio/inventory/internal/history"
)

type GetSystemSummaryParams struct {
	Refresh       bool       `json:"refresh,omitempty"`
	Full          bool       `json:"full,omitempty"`
	Status        []string   `json:"status,omitempty"`
	Search        string     `json:"search,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
	SortBy        string     `json:"sort_by,omitempty" validate:"omitempty,oneof=created_at name nomenclature counterparties"`
	SortDesc      bool       `json:"sort_desc,omitempty"`
	Limit         int        `json:"limit,omitempty" validate:"gte=0"`
}

type GetScanHistoryParams struct {
	Limit          int  `json:"limit,omitempty" validate:"gte=0"`
	IncludeDetails bool `json:"include_details,omitempty"`
}

type GetScanParams struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

type CompareScansParams struct {
	OldID int64 `json:"old_id,omitempty" validate:"gte=0,required_with=NewID"`
	NewID int64 `json:"new_id,omitempty" validate:"gte=0,required_with=OldID"`
}

type GetByIDParams struct {
	ID int `json:"id" validate:"required,gt=0"`
}

type InvalidateMetadataParams struct {
	Kind string `json:"kind" validate:"required,oneof=database project client"`
	ID   int    `json:"id" validate:"required,gt=0"`
}

// ScanHistoryResponse lists recorded scans, most recent first.
type ScanHistoryResponse struct {
	Scans []history.ScanHistoryEntry `json:"scans"`
	Count int                        `json:"count"`
}

type InvalidateMetadataResponse struct {
	Kind        string `json:"kind"`
	ID          int    `json:"id"`
	Invalidated bool   `json:"invalidated"`
}

type ClearCacheResponse struct {
	Cleared bool `json:"cleared"`
}

type KeyspaceStatsResponse struct {
	Kind        string  `json:"kind"`
	TTL         string  `json:"ttl"`
	Entries     int     `json:"entries"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	FetchErrors int64   `json:"fetch_errors"`
	HitRatio    float64 `json:"hit_ratio"`
}

type CacheStatsResponse struct {
	Keyspaces []KeyspaceStatsResponse `json:"keyspaces"`
}

func newCacheStatsResponse(stats []cache.KeyspaceStats) CacheStatsResponse {
	resp := CacheStatsResponse{Keyspaces: make([]KeyspaceStatsResponse, 0, len(stats))}
	for _, s := range stats {
		var ratio float64
		if lookups := s.Hits + s.Misses; lookups > 0 {
			ratio = float64(s.Hits) / float64(lookups)
		}
		resp.Keyspaces = append(resp.Keyspaces, KeyspaceStatsResponse{
			Kind:        s.Kind,
			TTL:         s.TTL.String(),
			Entries:     s.Entries,
			Hits:        s.Hits,
			Misses:      s.Misses,
			FetchErrors: s.FetchErrors,
			HitRatio:    ratio,
		})
	}
	return resp
}
