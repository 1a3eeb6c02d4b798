package dto

import "time"

// ModulePermissions qué acciones puede ofrecer la UI para un módulo.
type ModulePermissions struct {
	CanInstall   bool   `json:"can_install"`
	CanEnable    bool   `json:"can_enable"`
	CanUpdate    bool   `json:"can_update"`
	CanDownload  bool   `json:"can_download"`
	FreeFallback bool   `json:"free_fallback"`
	Reason       string `json:"reason,omitempty"`
}

// ModuleCard tarjeta del catálogo.
type ModuleCard struct {
	Key              string            `json:"key"`
	Name             string            `json:"name"`
	DescriptionHTML  string            `json:"description_html"`
	Version          string            `json:"version,omitempty"`
	AvailableVersion string            `json:"available_version,omitempty"`
	BillingTier      string            `json:"billing_tier"`
	Price            string            `json:"price"`
	State            string            `json:"state"`
	IsInstalled      bool              `json:"is_installed"`
	IsEnabled        bool              `json:"is_enabled"`
	IsAvailable      bool              `json:"is_available"`
	FilesPresent     bool              `json:"files_present"`
	UpdateAvailable  bool              `json:"update_available"`
	Dependencies     []string          `json:"dependencies,omitempty"`
	InstalledAt      *time.Time        `json:"installed_at,omitempty"`
	Permissions      ModulePermissions `json:"permissions"`
}

// ModuleListResponse listado del catálogo.
type ModuleListResponse struct {
	Modules []ModuleCard `json:"modules"`
	Total   int          `json:"total"`
}

// CatalogSyncResponse resultado de la sincronización con el catálogo remoto.
type CatalogSyncResponse struct {
	Success     bool     `json:"success"`
	Synced      int      `json:"synced"`
	Unavailable int      `json:"unavailable"`
	Keys        []string `json:"keys"`
}

// AuditEntryResponse línea del historial de un módulo.
type AuditEntryResponse struct {
	Action    string         `json:"action"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Actor     string         `json:"actor"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
