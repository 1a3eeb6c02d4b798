package http

import (
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	pkgjwt "github.com/jhoicas/appstore-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Catalog    ModuleCatalog
	Lifecycle  ModuleLifecycle
	License    LicenseStatus
	Contact    ContactSubmitter
	Checker    moduleChecker // respalda RequireModule
	ModuleKeys []string      // cada módulo compilado recibe GET /api/m/<key>/status
	JWTSecret  string
	Logger     zerolog.Logger
}

// AppConfig opciones del servidor Fiber.
type AppConfig struct {
	Name           string
	SwaggerEnabled bool
	SwaggerFile    string
}

// NewApp crea la app Fiber con recover, health, swagger opcional y las rutas de la API.
func NewApp(cfg AppConfig, deps RouterDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60, // update/download esperan a la API remota
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	if cfg.SwaggerEnabled {
		// Swagger UI: http://localhost:<port>/docs
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.SwaggerFile,
			Path:     "docs",
			Title:    "App Store API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.Name})
	})

	Router(app, deps)
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// App Store (solo admin)
	store := api.Group("/appstore", RequireRole(pkgjwt.RoleAdmin))

	moduleHandler := NewModuleHandler(deps.Catalog, deps.Lifecycle)
	modules := store.Group("/modules")
	modules.Get("/", moduleHandler.List)
	modules.Get("/:key", moduleHandler.Get)
	modules.Get("/:key/audit", moduleHandler.Audit)
	modules.Post("/:key/install", moduleHandler.Install)
	modules.Post("/:key/uninstall", moduleHandler.Uninstall)
	modules.Post("/:key/enable", moduleHandler.Enable)
	modules.Post("/:key/disable", moduleHandler.Disable)
	modules.Post("/:key/update", moduleHandler.Update)
	modules.Post("/:key/download", moduleHandler.Download)
	modules.Post("/:key/purge", moduleHandler.Purge)
	store.Post("/catalog/sync", moduleHandler.Sync)

	licenseHandler := NewLicenseHandler(deps.License)
	store.Get("/license", licenseHandler.Status)
	store.Post("/license/validate", licenseHandler.Validate)
	store.Post("/license/policies", licenseHandler.AcceptPolicies)

	contactHandler := NewContactHandler(deps.Contact)
	store.Post("/contact", contactHandler.Submit)

	// Rutas del host por módulo (cualquier usuario autenticado)
	for _, key := range deps.ModuleKeys {
		key := key
		api.Get("/m/"+key+"/status", RequireModule(key, deps.Checker, deps.Logger), func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"module": key, "active": true})
		})
	}
}
