package dto

// ContactRequest formulario de contacto con el equipo comercial.
type ContactRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Company   string `json:"company" validate:"max=160"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Message   string `json:"message" validate:"required,min=10,max=5000"`
	ModuleKey string `json:"module_key" validate:"omitempty,max=64"`
}
