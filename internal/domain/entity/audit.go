package entity

import "time"

// AuditEntry registro de una acción de ciclo de vida (éxito o fallo).
type AuditEntry struct {
	ID        string
	ModuleKey string
	Action    string // install, enable, disable, uninstall, update, download, purge
	Success   bool
	Message   string
	Actor     string // user_id del JWT o "cli"
	Metadata  map[string]any
	CreatedAt time.Time
}
