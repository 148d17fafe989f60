package services

import (
	"fmt"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
)

func exigirSessao(userSession *auth.SessionData) error {
	if userSession == nil {
		return fmt.Errorf("%w: usuário não autenticado", appErrors.ErrUnauthorized)
	}
	return nil
}

// exigirPapel é CheckRole com a mensagem de negação da tela.
func exigirPapel(userSession *auth.SessionData, papel auth.Capability, mensagem string) error {
	if err := exigirSessao(userSession); err != nil {
		return err
	}
	if !userSession.Has(papel) {
		return fmt.Errorf("%w: %s", appErrors.ErrPermissionDenied, mensagem)
	}
	return nil
}
