// Package auth define los tipos compartidos del core de autenticación: el
// Principal producido por una verificación exitosa y la taxonomía de errores
// que los verifiers exponen a sus callers.
//
// Política de propagación: los fallos del camino de autenticación se
// colapsan a ErrInvalidCredentials antes de llegar al caller — la distinción
// entre "no existe el usuario", "password incorrecto", "cuenta bloqueada" y
// "cuenta sin confirmar" sólo se loguea server-side, nunca se expone.
// Los fallos de registración/configuración sí pueden ser específicos.
package auth
