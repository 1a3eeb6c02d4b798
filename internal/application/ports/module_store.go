package ports

import "context"

// Manifest module.yaml leído del directorio de un módulo.
type Manifest struct {
	Key          string   `yaml:"key"`
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	BillingTier  string   `yaml:"billing_tier"`
	Dependencies []string `yaml:"dependencies"`
	// Dir nombre del subdirectorio dentro de MODULES_DIR (no viene del YAML).
	Dir string `yaml:"-"`
}

// ModuleStore acceso al directorio de módulos en disco.
type ModuleStore interface {
	// Scan lee los manifiestos de todos los subdirectorios; los inválidos se omiten.
	Scan(ctx context.Context) ([]Manifest, error)
	// Fingerprint cambia cuando cambia cualquier directorio de módulo.
	Fingerprint() (string, error)
	// Path ruta absoluta de un subdirectorio.
	Path(dir string) string
	// Extract reemplaza el directorio del módulo con el contenido del ZIP. Un paquete cuyo
	// manifiesto declara otra clave se rechaza sin tocar el directorio actual. La versión
	// anterior queda apartada hasta Commit o Rollback.
	Extract(ctx context.Context, key string, archive []byte) (*Manifest, error)
	// Commit descarta la versión apartada por el último Extract.
	Commit(ctx context.Context, key string) error
	// Rollback restaura la versión apartada; sin versión previa borra el directorio extraído.
	Rollback(ctx context.Context, key string) error
	// Remove borra el directorio del módulo; no falla si no existe.
	Remove(ctx context.Context, key string) error
}

// RegistryIndex contenido del caché del registro: clave de módulo -> subdirectorio.
type RegistryIndex struct {
	Fingerprint string            `json:"fingerprint"`
	BuiltAt     int64             `json:"built_at"`
	Entries     map[string]string `json:"entries"`
}

// RegistryCache caché en disco del índice del registro.
// Load devuelve (nil, nil) si no hay caché.
type RegistryCache interface {
	Load() (*RegistryIndex, error)
	Save(idx *RegistryIndex) error
	Clear() error
}
