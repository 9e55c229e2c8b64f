package logger

import "go.uber.org/zap"

// Campos estándar del dominio.

// Realm crea un campo para el realm (tenant).
func Realm(v string) zap.Field {
	return zap.String("realm", v)
}

// ProviderID crea un campo para el id del identity provider.
func ProviderID(v string) zap.Field {
	return zap.String("provider_id", v)
}

// AuthorityID crea un campo para el tipo de authority.
func AuthorityID(v string) zap.Field {
	return zap.String("authority_id", v)
}

// RepositoryID crea un campo para el repository id (realm slug o provider id).
func RepositoryID(v string) zap.Field {
	return zap.String("repository_id", v)
}

// Subject crea un campo para el user id estable.
func Subject(v string) zap.Field {
	return zap.String("subject", v)
}

// Username crea un campo para el username.
func Username(v string) zap.Field {
	return zap.String("username", v)
}

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}
