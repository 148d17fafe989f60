package models

import (
	"strings"
	"time"
)

// Tipos de perfil de usuário.
const (
	TipoOperador  = "operador"
	TipoQualidade = "qualidade"
	TipoLoja      = "loja"
)

// Grupos conhecidos pela aplicação.
const (
	GrupoQualidade = "Qualidade"
	GrupoCorte     = "Corte"
	GrupoInjetora  = "Injetora"
	GrupoLoja      = "Loja"
)

// ValidTipos define os tipos de perfil aceitos.
var ValidTipos = map[string]bool{
	TipoOperador:  true,
	TipoQualidade: true,
	TipoLoja:      true,
}

// DBUser representa a entidade User no banco de dados.
type DBUser struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement"`
	Username     string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	Active       bool       `gorm:"not null"`
	IsSuperuser  bool       `gorm:"not null;default:false"`
	LastLogin    *time.Time `gorm:"column:last_login"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`

	Groups []*DBGroup     `gorm:"many2many:usuario_grupos;joinForeignKey:UsuarioID;joinReferences:GrupoID"`
	Perfil *PerfilUsuario `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName especifica o nome da tabela para GORM.
func (DBUser) TableName() string {
	return "users"
}

// DBGroup é um grupo (setor) de usuários.
type DBGroup struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(80);uniqueIndex;not null"`
}

func (DBGroup) TableName() string {
	return "grupos"
}

// PerfilUsuario guarda o tipo do usuário (operador, qualidade ou loja).
type PerfilUsuario struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"uniqueIndex;not null"`
	Tipo   string `gorm:"type:varchar(20);not null"`
}

func (PerfilUsuario) TableName() string {
	return "perfis_usuario"
}

// PrimeiroGrupo devolve o grupo de menor id do usuário, ou "" sem grupos.
// Os grupos devem vir carregados em ordem de id.
func (u *DBUser) PrimeiroGrupo() string {
	var first *DBGroup
	for _, g := range u.Groups {
		if g != nil && (first == nil || g.ID < first.ID) {
			first = g
		}
	}
	if first == nil {
		return ""
	}
	return first.Name
}

// GroupNames lista os nomes dos grupos do usuário.
func (u *DBUser) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		if g != nil {
			names = append(names, g.Name)
		}
	}
	return names
}

// InGroup compara nomes de grupo sem distinção de caixa.
func (u *DBUser) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g != nil && strings.EqualFold(g.Name, name) {
			return true
		}
	}
	return false
}

// UserPublic representa os dados públicos de um usuário para as páginas e a API.
type UserPublic struct {
	ID          uint64     `json:"id"`
	Username    string     `json:"username"`
	Tipo        string     `json:"tipo"`
	Grupos      []string   `json:"grupos"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// ToUserPublic converte um DBUser para UserPublic.
func ToUserPublic(dbUser *DBUser) *UserPublic {
	if dbUser == nil {
		return nil
	}
	tipo := ""
	if dbUser.Perfil != nil {
		tipo = dbUser.Perfil.Tipo
	}
	return &UserPublic{
		ID:          dbUser.ID,
		Username:    dbUser.Username,
		Tipo:        tipo,
		Grupos:      dbUser.GroupNames(),
		IsSuperuser: dbUser.IsSuperuser,
		LastLogin:   dbUser.LastLogin,
	}
}
