package auth

// RoleUser es la autoridad fija asignada a todo principal autenticado.
// La escalación de roles se resuelve fuera de este core.
const RoleUser = "ROLE_USER"

// Principal es el resultado de una verificación de credenciales exitosa.
type Principal struct {
	Subject     string // user id estable
	Username    string
	Realm       string
	ProviderID  string
	AuthorityID string
	Roles       []string
}

// NewPrincipal construye un principal con el rol base.
func NewPrincipal(subject, username, realm, providerID, authorityID string) *Principal {
	return &Principal{
		Subject:     subject,
		Username:    username,
		Realm:       realm,
		ProviderID:  providerID,
		AuthorityID: authorityID,
		Roles:       []string{RoleUser},
	}
}
