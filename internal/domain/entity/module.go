package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillingTier clasificación comercial de un módulo; controla el gate de licencias.
type BillingTier string

const (
	TierFree BillingTier = "FREE"
	TierPaid BillingTier = "PAID"
	TierDev  BillingTier = "DEV"
)

// ParseBillingTier normaliza el texto del catálogo. Valores desconocidos se tratan como PAID
// para no abrir por error un módulo comercial.
func ParseBillingTier(s string) BillingTier {
	switch BillingTier(strings.ToUpper(strings.TrimSpace(s))) {
	case TierFree:
		return TierFree
	case TierDev:
		return TierDev
	default:
		return TierPaid
	}
}

// Module representa la fila del catálogo local de módulos (appstore_modules).
// Nunca se borra físicamente: uninstall y purge solo cambian banderas.
type Module struct {
	ID               string
	Key              string
	Name             string
	Description      string // Markdown del catálogo
	Version          string // versión instalada ("" si nunca se instaló)
	AvailableVersion string // última versión publicada
	BillingTier      BillingTier
	Price            decimal.Decimal
	IsInstalled      bool
	IsEnabled        bool
	IsAvailable      bool
	Config           map[string]any
	InstalledAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NormalizeModuleKey clave canónica: minúsculas y sin espacios alrededor.
func NormalizeModuleKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// State estado del ciclo de vida derivado de las banderas.
func (m *Module) State() string {
	switch {
	case !m.IsInstalled:
		return "not_installed"
	case m.IsEnabled:
		return "enabled"
	default:
		return "disabled"
	}
}
