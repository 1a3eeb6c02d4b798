package ports

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// LicenseAPI puerto de salida hacia la plataforma de distribución de módulos.
// El adaptador firma cada petición (HMAC) y corta el circuito ante fallos repetidos;
// la aplicación solo ve errores y resultados tipados.
type LicenseAPI interface {
	Validate(ctx context.Context, req ValidateRequest) (*ValidateResult, error)
	Catalog(ctx context.Context) ([]CatalogEntry, error)
	// Download devuelve el paquete ZIP de la versión pedida.
	Download(ctx context.Context, key, version string) ([]byte, error)
	SubmitContact(ctx context.Context, msg ContactMessage) error
}

// InstalledModule módulo reportado en la validación.
type InstalledModule struct {
	Key     string `json:"key"`
	Version string `json:"version"`
	Enabled bool   `json:"enabled"`
}

// ValidateRequest cuerpo de POST /v1/licenses/validate.
type ValidateRequest struct {
	LicenseKey string            `json:"license_key"`
	Modules    []InstalledModule `json:"modules"`
}

// ValidateResult respuesta de la validación. ContractActive puede venir ausente.
type ValidateResult struct {
	Success        bool            `json:"success"`
	Plan           string          `json:"plan"`
	ContractActive *bool           `json:"contract_active"`
	LicenseStatus  string          `json:"license_status"`
	AllowedModules []string        `json:"allowed_modules"`
	Licenses       json.RawMessage `json:"licenses,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// CatalogEntry módulo publicado en el catálogo remoto.
type CatalogEntry struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Version     string          `json:"version"`
	BillingTier string          `json:"billing_tier"`
	Price       decimal.Decimal `json:"price"`
}

// ContactMessage formulario de contacto ya saneado.
type ContactMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company,omitempty"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	ModuleKey string `json:"module_key,omitempty"`
}
