package entity

import (
	"encoding/json"
	"time"
)

// LicenseStatus valores de license_status conocidos localmente; la API remota puede enviar otros.
const (
	LicenseStatusUnknown             = "unknown"
	LicenseStatusActive              = "active"
	LicenseStatusUnreachable         = "unreachable"
	LicenseStatusPoliciesNotAccepted = "policies_not_accepted"
)

// WildcardModule en cached_modules habilita todos los módulos del plan.
const WildcardModule = "*"

// LicenseConfig fila singleton (id = 1) que cachea la última validación remota.
// ContractActive es tri-estado: nil = desconocido, que NO equivale a false.
type LicenseConfig struct {
	Plan               string
	ContractActive     *bool
	LicenseStatus      string
	ValidationOK       bool
	CachedModules      []string
	LicensesSnapshot   json.RawMessage
	PoliciesAcceptedAt *time.Time
	LastValidatedAt    *time.Time
	UpdatedAt          time.Time
}

// FreshAt informa si la validación sigue vigente en now para el TTL dado.
func (c *LicenseConfig) FreshAt(now time.Time, ttl time.Duration) bool {
	if c == nil || c.LastValidatedAt == nil {
		return false
	}
	return now.Before(c.LastValidatedAt.Add(ttl))
}
