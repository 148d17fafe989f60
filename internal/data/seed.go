package data

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// GruposPadrao são criados em toda inicialização, na ordem de id esperada.
var GruposPadrao = []string{
	models.GrupoQualidade,
	models.GrupoCorte,
	models.GrupoInjetora,
	models.GrupoLoja,
}

type usuarioPadrao struct {
	Username string
	Grupo    string
	Tipo     string
}

var usuariosPadrao = []usuarioPadrao{
	{"Qualidade01", models.GrupoQualidade, models.TipoQualidade},
	{"Operador01", models.GrupoCorte, models.TipoOperador},
	{"Injetora01", models.GrupoInjetora, models.TipoOperador},
	{"Loja01", models.GrupoLoja, models.TipoLoja},
}

// SeedDefaults cria os grupos e usuários padrão que ainda não existirem.
// Usuários existentes não têm senha nem perfil alterados.
func SeedDefaults(db *gorm.DB, password string) error {
	if password == "" {
		return errors.New("senha padrão dos usuários iniciais não pode ser vazia")
	}

	return WithTransaction(db, func(tx *gorm.DB) error {
		grupos := make(map[string]*models.DBGroup, len(GruposPadrao))
		for _, nome := range GruposPadrao {
			g := models.DBGroup{}
			if err := tx.Where(models.DBGroup{Name: nome}).FirstOrCreate(&g).Error; err != nil {
				return fmt.Errorf("falha ao criar grupo '%s': %w", nome, err)
			}
			grupos[nome] = &g
		}

		var hash []byte
		for _, u := range usuariosPadrao {
			var existing models.DBUser
			err := tx.Where("username = ?", u.Username).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("falha ao verificar usuário '%s': %w", u.Username, err)
			}

			if hash == nil {
				hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
				if err != nil {
					return fmt.Errorf("falha ao gerar hash da senha padrão: %w", err)
				}
			}

			novo := models.DBUser{
				Username:     u.Username,
				PasswordHash: string(hash),
				Active:       true,
				Groups:       []*models.DBGroup{grupos[u.Grupo]},
				Perfil:       &models.PerfilUsuario{Tipo: u.Tipo},
			}
			if err := tx.Create(&novo).Error; err != nil {
				return fmt.Errorf("falha ao criar usuário '%s': %w", u.Username, err)
			}
			appLogger.Infof("Usuário padrão criado: %s (grupo %s, tipo %s)", u.Username, u.Grupo, u.Tipo)
		}
		return nil
	})
}
