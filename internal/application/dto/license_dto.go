package dto

import "time"

// LicenseStatusResponse estado de licencia mostrado en el panel.
type LicenseStatusResponse struct {
	Plan               string     `json:"plan"`
	Status             string     `json:"status"`
	ContractActive     *bool      `json:"contract_active"`
	ValidationOK       bool       `json:"validation_ok"`
	Modules            []string   `json:"modules"`
	Degraded           bool       `json:"degraded"`
	PoliciesAccepted   bool       `json:"policies_accepted"`
	PoliciesAcceptedAt *time.Time `json:"policies_accepted_at,omitempty"`
	LastValidatedAt    *time.Time `json:"last_validated_at,omitempty"`
}
