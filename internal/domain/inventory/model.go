package inventory

import "time"

// Client is a tenant of the normalization platform.
type Client struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	LegalName    string    `json:"legal_name"`
	Description  string    `json:"description"`
	ContactEmail string    `json:"contact_email"`
	TaxID        string    `json:"tax_id"`
	Country      string    `json:"country"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ClientProject groups the databases a client submits for normalization.
type ClientProject struct {
	ID                 int       `json:"id"`
	ClientID           int       `json:"client_id"`
	Name               string    `json:"name"`
	ProjectType        string    `json:"project_type"`
	Description        string    `json:"description"`
	SourceSystem       string    `json:"source_system"`
	Status             string    `json:"status"`
	TargetQualityScore float64   `json:"target_quality_score"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ProjectDatabase is a per-project database file registered in the service store.
type ProjectDatabase struct {
	ID              int        `json:"id"`
	ClientProjectID int        `json:"client_project_id"`
	Name            string     `json:"name"`
	FilePath        string     `json:"file_path"`
	Description     string     `json:"description"`
	IsActive        bool       `json:"is_active"`
	FileSize        int64      `json:"file_size"`
	LastUsedAt      *time.Time `json:"last_used_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Upload is one data upload recorded in the main store.
type Upload struct {
	ID          int        `json:"id"`
	UploadUUID  string     `json:"upload_uuid"`
	ConfigName  string     `json:"config_name"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DatabaseID  *int       `json:"database_id,omitempty"`
	ClientID    *int       `json:"client_id,omitempty"`
	ProjectID   *int       `json:"project_id,omitempty"`
}
