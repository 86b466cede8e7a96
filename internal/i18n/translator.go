// Package i18n resolves message keys to localized text.
package i18n

import (
	"strings"

	"github.com/danraniery/sgm/pkg/domain"
)

// Supported locales.
const (
	LocalePtBR = "pt-br"
	LocaleEn   = "en"
)

var catalogs = map[string]map[string]string{
	LocalePtBR: {
		domain.KeyBadCredentials:   "Usuário ou senha inválidos.",
		domain.KeyAccessDenied:     "Acesso negado.",
		domain.KeyUserBlocked:      "Usuário bloqueado. Tente novamente mais tarde.",
		domain.KeyUserNotActivated: "Usuário não está ativo.",
		domain.KeyAttemptsExceeded: "Número máximo de tentativas de acesso excedido. Usuário bloqueado.",
		domain.KeySessionExpired:   "Sessão expirada. Faça login novamente.",
		domain.KeyInvalidToken:     "Token de acesso inválido.",
		domain.KeyEditSuperEntity:  "Acesso negado! Você não pode editar este usuário.",
		domain.KeyNotFound:         "Registro não encontrado.",
		domain.KeyConcurrency:      "O registro foi alterado por outra operação. Tente novamente.",
		domain.KeyValidation:       "Dados inválidos.",
		domain.KeyPasswordWeak:     "A senha não atende aos requisitos: deve conter número, letra minúscula, letra maiúscula e caractere especial.",
		domain.KeyPasswordReused:   "A nova senha não pode ser igual a uma das últimas senhas utilizadas.",
		domain.KeyPasswordMismatch: "A senha e a confirmação de senha não conferem.",
		domain.KeyRequired:         "Campo obrigatório não informado.",
		domain.KeyUsernameTaken:    "Já existe um usuário com este login.",
		domain.KeyInvalidUsername:  "Login inválido.",
		domain.KeyInvalidName:      "Nome inválido.",
		domain.KeyInternal:         "Erro interno do servidor.",
		KeyRateLimited:             "Muitas requisições. Tente novamente mais tarde.",
		KeyBodyTooLarge:            "Corpo da requisição muito grande.",
	},
	LocaleEn: {
		domain.KeyBadCredentials:   "Invalid username or password.",
		domain.KeyAccessDenied:     "Access denied.",
		domain.KeyUserBlocked:      "User is blocked. Try again later.",
		domain.KeyUserNotActivated: "User is not active.",
		domain.KeyAttemptsExceeded: "Maximum number of login attempts exceeded. User blocked.",
		domain.KeySessionExpired:   "Session expired. Please sign in again.",
		domain.KeyInvalidToken:     "Invalid access token.",
		domain.KeyEditSuperEntity:  "Access denied! You cannot edit this user.",
		domain.KeyNotFound:         "Record not found.",
		domain.KeyConcurrency:      "The record was changed by another operation. Try again.",
		domain.KeyValidation:       "Invalid data.",
		domain.KeyPasswordWeak:     "The password does not meet the requirements: it must contain a number, a lowercase letter, an uppercase letter and a special character.",
		domain.KeyPasswordReused:   "The new password cannot match one of the most recent passwords.",
		domain.KeyPasswordMismatch: "Password and confirmation do not match.",
		domain.KeyRequired:         "Required field is missing.",
		domain.KeyUsernameTaken:    "A user with this username already exists.",
		domain.KeyInvalidUsername:  "Invalid username.",
		domain.KeyInvalidName:      "Invalid name.",
		domain.KeyInternal:         "Internal server error.",
		KeyRateLimited:             "Too many requests. Please try again later.",
		KeyBodyTooLarge:            "Request body too large.",
	},
}

// Keys used only at the HTTP boundary.
const (
	KeyRateLimited  = "error.rateLimited"
	KeyBodyTooLarge = "error.requestTooLarge"
)

// Translator resolves keys against a default locale.
// It is immutable and safe for concurrent use.
type Translator struct {
	locale string
}

// New creates a translator. Unknown locales fall back to pt-br.
func New(locale string) *Translator {
	return &Translator{locale: normalize(locale)}
}

// Locale returns the default locale.
func (t *Translator) Locale() string {
	return t.locale
}

// Translate returns the message for key in the default locale.
func (t *Translator) Translate(key string) string {
	return t.TranslateIn(t.locale, key)
}

// TranslateIn returns the message for key in locale. Missing keys translate to themselves.
func (t *Translator) TranslateIn(locale, key string) string {
	if msg, ok := catalogs[normalize(locale)][key]; ok {
		return msg
	}
	if msg, ok := catalogs[t.locale][key]; ok {
		return msg
	}
	return key
}

// Negotiate picks a supported locale from an Accept-Language header,
// falling back to the default locale.
func (t *Translator) Negotiate(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		if tag == "" {
			continue
		}
		if _, ok := catalogs[tag]; ok {
			return tag
		}
		if base := strings.SplitN(tag, "-", 2)[0]; base != tag {
			if _, ok := catalogs[base]; ok {
				return base
			}
		}
		if strings.HasPrefix(tag, "pt") {
			return LocalePtBR
		}
	}
	return t.locale
}

func normalize(locale string) string {
	locale = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if _, ok := catalogs[locale]; ok {
		return locale
	}
	if strings.HasPrefix(locale, "en") {
		return LocaleEn
	}
	return LocalePtBR
}
