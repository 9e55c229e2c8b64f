// Package migrations embebe los archivos SQL del esquema core.
package migrations

import "embed"

// FS contiene las migraciones del esquema de cuentas y credenciales.
//
//go:embed core/*.sql
var FS embed.FS

// Dir es el directorio dentro de FS donde viven las migraciones.
const Dir = "core"
