package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/appstore-api/internal/application/dto"
)

// ModuleCatalog lo implementa *module.Catalog.
type ModuleCatalog interface {
	Cards(ctx context.Context) (*dto.ModuleListResponse, error)
	Card(ctx context.Context, key string) (*dto.ModuleCard, error)
	Sync(ctx context.Context) (*dto.CatalogSyncResponse, error)
}

// ModuleLifecycle lo implementa *module.Lifecycle.
type ModuleLifecycle interface {
	Install(ctx context.Context, key, actor string) (*dto.ActionResponse, error)
	Enable(ctx context.Context, key, actor string) (*dto.ActionResponse, error)
	Disable(ctx context.Context, key, actor string) (*dto.ActionResponse, error)
	Uninstall(ctx context.Context, key, actor string) (*dto.ActionResponse, error)
	Update(ctx context.Context, key, actor string) (*dto.ActionResponse, error)
	Download(ctx context.Context, key, actor string) (*dto.ActionResponse, error)
	Purge(ctx context.Context, key, actor string) (*dto.ActionResponse, error)
	Audit(ctx context.Context, key string, limit int) ([]dto.AuditEntryResponse, error)
}

type lifecycleAction func(ctx context.Context, key, actor string) (*dto.ActionResponse, error)

// ModuleHandler tarjetas del App Store, acciones de ciclo de vida y sincronización del catálogo.
type ModuleHandler struct {
	catalog   ModuleCatalog
	lifecycle ModuleLifecycle
}

func NewModuleHandler(catalog ModuleCatalog, lifecycle ModuleLifecycle) *ModuleHandler {
	return &ModuleHandler{catalog: catalog, lifecycle: lifecycle}
}

// List godoc
// @Summary      Listar módulos con permisos calculados
// @Tags         modules
// @Produce      json
// @Success      200  {object}  dto.ModuleListResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/appstore/modules [get]
func (h *ModuleHandler) List(c *fiber.Ctx) error {
	out, err := h.catalog.Cards(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Tarjeta de un módulo
// @Tags         modules
// @Produce      json
// @Param        key  path  string  true  "Clave del módulo"
// @Success      200  {object}  dto.ModuleCard
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/appstore/modules/{key} [get]
func (h *ModuleHandler) Get(c *fiber.Ctx) error {
	out, err := h.catalog.Card(c.UserContext(), c.Params("key"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Audit godoc
// @Summary      Historial de acciones de un módulo
// @Tags         modules
// @Produce      json
// @Param        key    path   string  true   "Clave del módulo"
// @Param        limit  query  int     false  "Límite"  default(50)
// @Success      200  {array}   dto.AuditEntryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/appstore/modules/{key}/audit [get]
func (h *ModuleHandler) Audit(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	out, err := h.lifecycle.Audit(c.UserContext(), c.Params("key"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Install godoc
// @Summary      Instalar módulo
// @Tags         modules
// @Produce      json
// @Param        key  path  string  true  "Clave del módulo"
// @Success      200  {object}  dto.ActionResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/appstore/modules/{key}/install [post]
func (h *ModuleHandler) Install(c *fiber.Ctx) error { return h.run(c, h.lifecycle.Install) }

// Enable godoc
// @Summary      Habilitar módulo
// @Tags         modules
// @Param        key  path  string  true  "Clave del módulo"
// @Success      200  {object}  dto.ActionResponse
// @Router       /api/appstore/modules/{key}/enable [post]
func (h *ModuleHandler) Enable(c *fiber.Ctx) error { return h.run(c, h.lifecycle.Enable) }

// Disable godoc
// @Summary      Deshabilitar módulo
// @Tags         modules
// @Param        key  path  string  true  "Clave del módulo"
// @Success      200  {object}  dto.ActionResponse
// @Router       /api/appstore/modules/{key}/disable [post]
func (h *ModuleHandler) Disable(c *fiber.Ctx) error { return h.run(c, h.lifecycle.Disable) }

// Uninstall godoc
// @Summary      Desinstalar módulo
// @Tags         modules
// @Param        key  path  string  true  "Clave del módulo"
// @Success      200  {object}  dto.ActionResponse
// @Router       /api/appstore/modules/{key}/uninstall [post]
func (h *ModuleHandler) Uninstall(c *fiber.Ctx) error { return h.run(c, h.lifecycle.Uninstall) }

// Update godoc
// @Summary      Actualizar módulo a la versión publicada
// @Tags         modules
// @Param        key  path  string  true  "Clave del módulo"
// @Success      200  {object}  dto.ActionResponse
// @Router       /api/appstore/modules/{key}/update [post]
func (h *ModuleHandler) Update(c *fiber.Ctx) error { return h.run(c, h.lifecycle.Update) }

// Download godoc
// @Summary      Descargar el paquete del módulo
// @Tags         modules
// @Param        key  path  string  true  "Clave del módulo"
// @Success      200  {object}  dto.ActionResponse
// @Router       /api/appstore/modules/{key}/download [post]
func (h *ModuleHandler) Download(c *fiber.Ctx) error { return h.run(c, h.lifecycle.Download) }

// Purge godoc
// @Summary      Borrar datos y archivos del módulo
// @Tags         modules
// @Param        key  path  string  true  "Clave del módulo"
// @Success      200  {object}  dto.ActionResponse
// @Router       /api/appstore/modules/{key}/purge [post]
func (h *ModuleHandler) Purge(c *fiber.Ctx) error { return h.run(c, h.lifecycle.Purge) }

// Sync godoc
// @Summary      Sincronizar el catálogo remoto
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  dto.CatalogSyncResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/appstore/catalog/sync [post]
func (h *ModuleHandler) Sync(c *fiber.Ctx) error {
	out, err := h.catalog.Sync(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func (h *ModuleHandler) run(c *fiber.Ctx, action lifecycleAction) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "MISSING_KEY", "key es requerido")
	}
	out, err := action(c.UserContext(), key, actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// actor usuario del token; las llamadas sin usuario quedan como "api".
func actor(c *fiber.Ctx) string {
	if id := GetUserID(c); id != "" {
		return id
	}
	return "api"
}
