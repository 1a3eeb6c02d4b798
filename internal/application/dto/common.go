package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ActionResponse resultado de una acción del App Store; la UI navega a RedirectURL.
type ActionResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RedirectURL string `json:"redirect_url,omitempty"`
	// FreeFallback el módulo sigue activo sin licencia vigente.
	FreeFallback bool `json:"free_fallback,omitempty"`
}
