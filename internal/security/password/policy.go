package password

import "unicode"

// Reason codes de violaciones de política. Estables: los callers los usan
// para renderizar mensajes precisos.
const (
	ReasonMinLength        = "min-length"
	ReasonMaxLength        = "max-length"
	ReasonRequireAlpha     = "require-alpha"
	ReasonRequireUppercase = "require-uppercase"
	ReasonRequireNumber    = "require-number"
	ReasonRequireSpecial   = "require-special"
	ReasonWhitespace       = "whitespace"
)

// Policy define los predicados configurables de validación de passwords.
// Se aplica en set/reset, nunca en verify.
type Policy struct {
	MinLength        int
	MaxLength        int
	RequireAlpha     bool
	RequireUppercase bool
	RequireNumber    bool
	RequireSpecial   bool
	AllowWhitespace  bool
}

// DefaultPolicy son los valores usados cuando el provider no configura nada.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:       8,
		MaxLength:       128,
		AllowWhitespace: true,
	}
}

// Validate evalúa todos los predicados y retorna un reason code por cada
// predicado violado. Un slice vacío significa password válido.
func (p Policy) Validate(s string) (reasons []string) {
	runes := []rune(s)
	if len(runes) < p.MinLength {
		reasons = append(reasons, ReasonMinLength)
	}
	if p.MaxLength > 0 && len(runes) > p.MaxLength {
		reasons = append(reasons, ReasonMaxLength)
	}
	var hasAlpha, hasUpper, hasDigit, hasSpecial, hasSpace bool
	for _, r := range runes {
		switch {
		case unicode.IsSpace(r):
			hasSpace = true
		case unicode.IsUpper(r):
			hasUpper = true
			hasAlpha = true
		case unicode.IsLetter(r):
			hasAlpha = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if p.RequireAlpha && !hasAlpha {
		reasons = append(reasons, ReasonRequireAlpha)
	}
	if p.RequireUppercase && !hasUpper {
		reasons = append(reasons, ReasonRequireUppercase)
	}
	if p.RequireNumber && !hasDigit {
		reasons = append(reasons, ReasonRequireNumber)
	}
	if p.RequireSpecial && !hasSpecial {
		reasons = append(reasons, ReasonRequireSpecial)
	}
	if !p.AllowWhitespace && hasSpace {
		reasons = append(reasons, ReasonWhitespace)
	}
	return reasons
}
