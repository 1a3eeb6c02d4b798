// Package modulefs directorio de módulos en disco: manifiestos, huella y paquetes ZIP.
package modulefs

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
)

var _ ports.ModuleStore = (*Store)(nil)

// ManifestFile nombre del manifiesto dentro de cada directorio de módulo.
const ManifestFile = "module.yaml"

const backupSuffix = ".old"

const (
	maxExtractedBytes = 200 << 20
	maxArchiveFiles   = 5000
)

// Store implementa ports.ModuleStore sobre MODULES_DIR.
type Store struct {
	root string
	log  zerolog.Logger
}

func NewStore(root string, log zerolog.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("modulefs: ruta %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("modulefs: crear %s: %w", abs, err)
	}
	return &Store{root: abs, log: log}, nil
}

func (s *Store) Path(dir string) string { return filepath.Join(s.root, dir) }

// Scan lee module.yaml de cada subdirectorio. Directorios ocultos o sin manifiesto válido se omiten.
func (s *Store) Scan(ctx context.Context) ([]ports.Manifest, error) {
	entries, err := s.subdirs()
	if err != nil {
		return nil, err
	}
	out := make([]ports.Manifest, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := readManifest(filepath.Join(s.root, e.Name()))
		if err != nil {
			s.log.Warn().Err(err).Str("dir", e.Name()).Msg("modulefs: manifiesto omitido")
			continue
		}
		m.Dir = e.Name()
		out = append(out, *m)
	}
	return out, nil
}

// Fingerprint hash de nombre + mtime de cada subdirectorio y de su manifiesto.
func (s *Store) Fingerprint() (string, error) {
	entries, err := s.subdirs()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		h.Write([]byte(e.Name() + ":" + strconv.FormatInt(info.ModTime().UnixNano(), 10)))
		if mi, err := os.Stat(filepath.Join(s.root, e.Name(), ManifestFile)); err == nil {
			h.Write([]byte("/" + strconv.FormatInt(mi.ModTime().UnixNano(), 10) + "/" + strconv.FormatInt(mi.Size(), 10)))
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Extract descomprime el paquete en un directorio temporal y lo intercambia por MODULES_DIR/<key>.
// Si el ZIP trae una única carpeta raíz se usa su contenido. La versión anterior queda en
// <key>.old hasta Commit o Rollback.
func (s *Store) Extract(ctx context.Context, key string, archive []byte) (*ports.Manifest, error) {
	key, err := validKey(key)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("modulefs: paquete ZIP inválido: %w", err)
	}
	if len(zr.File) > maxArchiveFiles {
		return nil, fmt.Errorf("modulefs: el paquete tiene demasiados archivos (%d)", len(zr.File))
	}

	tmp, err := os.MkdirTemp(s.root, ".extract-"+key+"-")
	if err != nil {
		return nil, fmt.Errorf("modulefs: directorio temporal: %w", err)
	}
	defer os.RemoveAll(tmp)

	prefix := commonRoot(zr.File)
	var total int64
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue
		}
		n, err := extractFile(tmp, name, f, maxExtractedBytes-total)
		if err != nil {
			return nil, err
		}
		total += n
	}

	m, err := readManifest(tmp)
	if err != nil {
		return nil, fmt.Errorf("modulefs: el paquete no contiene un %s válido: %w", ManifestFile, err)
	}
	if m.Key != key {
		return nil, fmt.Errorf("modulefs: el paquete declara la clave '%s' en lugar de '%s'", m.Key, key)
	}

	dst := s.Path(key)
	old := dst + backupSuffix
	if err := os.RemoveAll(old); err != nil {
		return nil, fmt.Errorf("modulefs: limpiar versión apartada: %w", err)
	}
	if _, err := os.Stat(dst); err == nil {
		if err := os.Rename(dst, old); err != nil {
			return nil, fmt.Errorf("modulefs: apartar versión anterior: %w", err)
		}
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Rename(old, dst)
		return nil, fmt.Errorf("modulefs: instalar paquete: %w", err)
	}

	m.Dir = key
	s.log.Info().Str("module", key).Str("version", m.Version).Int64("bytes", total).Msg("modulefs: paquete extraído")
	return m, nil
}

// Commit borra <key>.old; no falla si no existe.
func (s *Store) Commit(_ context.Context, key string) error {
	key, err := validKey(key)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(s.Path(key) + backupSuffix); err != nil {
		return fmt.Errorf("modulefs: descartar versión anterior de %s: %w", key, err)
	}
	return nil
}

// Rollback devuelve <key>.old a su lugar. Si no hay versión apartada el módulo no existía
// antes del Extract y el directorio se borra.
func (s *Store) Rollback(_ context.Context, key string) error {
	key, err := validKey(key)
	if err != nil {
		return err
	}
	dst := s.Path(key)
	old := dst + backupSuffix
	if _, err := os.Stat(old); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.RemoveAll(dst); err != nil {
				return fmt.Errorf("modulefs: borrar %s: %w", key, err)
			}
			return nil
		}
		return fmt.Errorf("modulefs: %w", err)
	}
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("modulefs: borrar versión nueva de %s: %w", key, err)
	}
	if err := os.Rename(old, dst); err != nil {
		return fmt.Errorf("modulefs: restaurar versión anterior de %s: %w", key, err)
	}
	s.log.Warn().Str("module", key).Msg("modulefs: versión anterior restaurada")
	return nil
}

// Remove borra MODULES_DIR/<key> y cualquier versión apartada; no falla si no existen.
func (s *Store) Remove(_ context.Context, key string) error {
	key, err := validKey(key)
	if err != nil {
		return err
	}
	for _, dir := range []string{s.Path(key), s.Path(key) + backupSuffix} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("modulefs: borrar %s: %w", key, err)
		}
	}
	return nil
}

func validKey(key string) (string, error) {
	key = entity.NormalizeModuleKey(key)
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("modulefs: clave de módulo inválida %q", key)
	}
	return key, nil
}

func (s *Store) subdirs() ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("modulefs: leer %s: %w", s.root, err)
	}
	dirs := entries[:0]
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") && !strings.HasSuffix(e.Name(), backupSuffix) {
			dirs = append(dirs, e)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })
	return dirs, nil
}

func readManifest(dir string) (*ports.Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m ports.Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", ManifestFile, err)
	}
	m.Key = entity.NormalizeModuleKey(m.Key)
	if m.Key == "" {
		return nil, fmt.Errorf("%s: falta key", ManifestFile)
	}
	return &m, nil
}

// commonRoot "pkg/" si todas las entradas cuelgan de una sola carpeta y no hay manifiesto en la raíz.
func commonRoot(files []*zip.File) string {
	root := ""
	for _, f := range files {
		if f.Name == ManifestFile {
			return ""
		}
		first, _, found := strings.Cut(f.Name, "/")
		if !found {
			return ""
		}
		if root == "" {
			root = first
		} else if root != first {
			return ""
		}
	}
	if root == "" {
		return ""
	}
	return root + "/"
}

// extractFile escribe una entrada dentro de base; rechaza rutas que escapen (zip-slip) y enlaces.
func extractFile(base, name string, f *zip.File, budget int64) (int64, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return 0, fmt.Errorf("modulefs: ruta ilegal en el paquete %q", f.Name)
	}
	target := filepath.Join(base, clean)
	if !strings.HasPrefix(target, base+string(filepath.Separator)) {
		return 0, fmt.Errorf("modulefs: ruta ilegal en el paquete %q", f.Name)
	}

	mode := f.Mode()
	switch {
	case mode.IsDir():
		return 0, os.MkdirAll(target, 0o755)
	case !mode.IsRegular():
		return 0, fmt.Errorf("modulefs: tipo de archivo no permitido %q", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("modulefs: %w", err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("modulefs: abrir %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("modulefs: %w", err)
	}
	n, err := io.Copy(out, io.LimitReader(rc, budget+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("modulefs: escribir %q: %w", f.Name, err)
	}
	if n > budget {
		return n, fmt.Errorf("modulefs: el paquete descomprimido supera %d bytes", maxExtractedBytes)
	}
	return n, nil
}
