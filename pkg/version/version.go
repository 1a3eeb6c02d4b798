// Package version compara versiones de módulos con semántica semver.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Normalize agrega el prefijo "v" que exige x/mod/semver ("1.2.3" -> "v1.2.3").
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// IsValid informa si v es una versión semver válida (con o sin prefijo "v").
func IsValid(v string) bool {
	return semver.IsValid(Normalize(v))
}

// Compare devuelve -1, 0 o +1. Las versiones inválidas ordenan antes que cualquier válida.
func Compare(a, b string) int {
	return semver.Compare(Normalize(a), Normalize(b))
}

// HasNewer informa si available es estrictamente mayor que installed.
//   - available vacío o inválido: no hay actualización.
//   - installed vacío o inválido: cualquier available válido es actualización.
func HasNewer(installed, available string) bool {
	if !IsValid(available) {
		return false
	}
	if !IsValid(installed) {
		return true
	}
	return Compare(installed, available) < 0
}
