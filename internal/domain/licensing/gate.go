// Package licensing contiene la regla de autorización de módulos según licencia.
//
// Es una función pura: no habla con la API remota ni con la DB. La aplicación resuelve el
// Snapshot (cacheado o forzado) y pregunta a Policy.Decide; el mismo cálculo se usa en
// install, enable, update, download y en el middleware de uso.
package licensing

import (
	"fmt"
	"slices"
	"time"

	"github.com/jhoicas/appstore-api/internal/domain/entity"
)

// Action acción sobre un módulo sujeta al gate.
type Action string

const (
	ActionInstall   Action = "install"
	ActionUninstall Action = "uninstall"
	ActionEnable    Action = "enable"
	ActionDisable   Action = "disable"
	ActionUpdate    Action = "update"
	ActionDownload  Action = "download"
	ActionPurge     Action = "purge"
	ActionUse       Action = "use"
)

// IsRemoval acciones que retiran un módulo; nunca se bloquean por licencia.
func (a Action) IsRemoval() bool {
	switch a {
	case ActionDisable, ActionUninstall, ActionPurge:
		return true
	}
	return false
}

// RequiresFreshValidation acciones que obligan a revalidar contra la API remota.
func (a Action) RequiresFreshValidation() bool {
	return a == ActionUpdate || a == ActionDownload
}

// grandfathered acciones permitidas a un módulo PAID ya instalado cuando la licencia caducó.
func (a Action) grandfathered() bool {
	return a == ActionEnable || a == ActionUse
}

// Snapshot vista inmutable de la licencia usada para decidir.
type Snapshot struct {
	Plan           string
	ContractActive *bool // nil = desconocido
	ValidationOK   bool
	Status         string
	AllowedModules []string
	ValidatedAt    *time.Time
	// Degraded indica que la última validación remota falló y se usan datos cacheados.
	Degraded bool
}

// FromConfig construye el snapshot a partir de la fila persistida.
func FromConfig(cfg *entity.LicenseConfig) Snapshot {
	if cfg == nil {
		return Snapshot{Status: entity.LicenseStatusUnknown}
	}
	return Snapshot{
		Plan:           cfg.Plan,
		ContractActive: cfg.ContractActive,
		ValidationOK:   cfg.ValidationOK,
		Status:         cfg.LicenseStatus,
		AllowedModules: slices.Clone(cfg.CachedModules),
		ValidatedAt:    cfg.LastValidatedAt,
	}
}

// ContractLapsed true solo si el contrato es explícitamente false.
func (s Snapshot) ContractLapsed() bool {
	return s.ContractActive != nil && !*s.ContractActive
}

// AllowsModule comodín "*" o pertenencia explícita.
func (s Snapshot) AllowsModule(key string) bool {
	key = entity.NormalizeModuleKey(key)
	for _, m := range s.AllowedModules {
		if m == entity.WildcardModule || entity.NormalizeModuleKey(m) == key {
			return true
		}
	}
	return false
}

// Code motivo de la decisión, estable para clientes de la API.
type Code string

const (
	CodeFree             Code = "free"
	CodeRemoval          Code = "removal"
	CodeDevPlan          Code = "dev_plan"
	CodeLicensed         Code = "licensed"
	CodeFreeFallback     Code = "free_fallback"
	CodeDevPlanRequired  Code = "dev_plan_required"
	CodeContractInactive Code = "contract_inactive"
	CodeValidationFailed Code = "validation_failed"
	CodeNotInPlan        Code = "not_in_plan"
)

// Decision resultado del gate.
type Decision struct {
	Allowed      bool
	Code         Code
	Message      string
	FreeFallback bool
}

// Policy parámetros del gate.
type Policy struct {
	// DevPlan plan que habilita módulos DEV.
	DevPlan string
}

// Decide aplica la regla por tier:
//   - FREE: siempre permitido.
//   - DEV: solo con el plan de desarrollador.
//   - PAID: contrato no explícitamente inactivo, validación OK y módulo en el plan.
//     Si no está licenciado pero ya está instalado, enable/use siguen permitidos
//     (fallback a tier gratuito); update/download/install se bloquean.
//
// Las acciones de retiro (disable, uninstall, purge) siempre se permiten.
func (p Policy) Decide(tier entity.BillingTier, key string, action Action, snap Snapshot, installed bool) Decision {
	if action.IsRemoval() {
		return allow(CodeRemoval)
	}

	switch tier {
	case entity.TierFree:
		return allow(CodeFree)

	case entity.TierDev:
		if p.DevPlan != "" && snap.Plan == p.DevPlan {
			return allow(CodeDevPlan)
		}
		return deny(CodeDevPlanRequired,
			fmt.Sprintf("el módulo '%s' solo está disponible con el plan %s", key, p.devPlanLabel()))
	}

	denial := paidDenial(key, snap)
	if denial == nil {
		return allow(CodeLicensed)
	}
	if installed && action.grandfathered() {
		return Decision{
			Allowed:      true,
			Code:         CodeFreeFallback,
			Message:      fmt.Sprintf("licencia de '%s' no vigente: el módulo instalado sigue disponible sin actualizaciones", key),
			FreeFallback: true,
		}
	}
	return *denial
}

// paidDenial devuelve nil si el módulo PAID está licenciado.
func paidDenial(key string, snap Snapshot) *Decision {
	var d Decision
	switch {
	case snap.ContractLapsed():
		d = deny(CodeContractInactive, "el contrato comercial no está activo; renuévelo para usar módulos de pago")
	case !snap.ValidationOK:
		d = deny(CodeValidationFailed, "no se pudo validar la licencia con la plataforma de distribución")
	case !snap.AllowsModule(key):
		d = deny(CodeNotInPlan, fmt.Sprintf("el módulo '%s' no está incluido en el plan %s", key, planLabel(snap.Plan)))
	default:
		return nil
	}
	return &d
}

func (p Policy) devPlanLabel() string {
	if p.DevPlan == "" {
		return "de desarrollador"
	}
	return p.DevPlan
}

func planLabel(plan string) string {
	if plan == "" {
		return "actual"
	}
	return plan
}

func allow(code Code) Decision {
	return Decision{Allowed: true, Code: code}
}

func deny(code Code, msg string) Decision {
	return Decision{Allowed: false, Code: code, Message: msg}
}
