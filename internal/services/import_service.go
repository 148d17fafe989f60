package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap" // Para Latin-1
	"golang.org/x/text/transform"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
)

// Tamanho máximo aceito para um arquivo de importação.
const maxImportBytes = 2 << 20

// Cabeçalhos ignorados quando aparecem na primeira linha.
var cabecalhosConhecidos = map[string]bool{"nome": true, "name": true, "parte": true, "operador": true, "modelo": true, "cor": true}

// ResultadoImportacao resume uma importação de cadastro.
type ResultadoImportacao struct {
	Catalogo  string `json:"catalogo"`
	Arquivo   string `json:"arquivo"`
	Encoding  string `json:"encoding"`
	Linhas    int    `json:"linhas"`
	Criados   int    `json:"criados"`
	Ignorados int    `json:"ignorados"`
}

// ImportService importa nomes de cadastro a partir de arquivos CSV/TXT.
type ImportService interface {
	ImportarCatalogo(chave, nomeArquivo string, r io.Reader, userSession *auth.SessionData) (*ResultadoImportacao, error)
	GetAllImportStatus(userSession *auth.SessionData) ([]models.ImportMetadataPublic, error)
	GetImportStatus(chave string, userSession *auth.SessionData) (*models.ImportMetadataPublic, error)
}

type importServiceImpl struct {
	cfg                *core.Config
	auditLogService    AuditLogService
	importMetadataRepo repositories.ImportMetadataRepository
	importadores       map[string]Importador
}

// NewImportService cria uma nova instância de ImportService. Cada importador é
// registrado pela sua chave (ex: "PARTES").
func NewImportService(
	cfg *core.Config,
	auditLog AuditLogService,
	imRepo repositories.ImportMetadataRepository,
	importadores ...Importador,
) ImportService {
	if cfg == nil || auditLog == nil || imRepo == nil || len(importadores) == 0 {
		appLogger.Fatalf("Dependências nulas fornecidas para NewImportService")
	}
	m := make(map[string]Importador, len(importadores))
	for _, imp := range importadores {
		m[strings.ToUpper(imp.Chave())] = imp
	}
	return &importServiceImpl{cfg: cfg, auditLogService: auditLog, importMetadataRepo: imRepo, importadores: m}
}

// decodificar tenta UTF-8 (removendo o BOM) e cai para Latin-1 (ISO-8859-1).
func decodificar(raw []byte) ([]byte, string, error) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return raw, "UTF-8", nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		return nil, "", err
	}
	return out, "ISO-8859-1", nil
}

// lerNomes devolve a primeira coluna de cada linha não vazia.
// O separador é ';' se a primeira linha tiver algum, senão ','.
func lerNomes(conteudo []byte) ([]string, error) {
	primeira := conteudo
	if i := bytes.IndexByte(conteudo, '\n'); i >= 0 {
		primeira = conteudo[:i]
	}
	reader := csv.NewReader(bytes.NewReader(conteudo))
	reader.Comma = ','
	if bytes.IndexByte(primeira, ';') >= 0 {
		reader.Comma = ';'
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var nomes []string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, fmt.Errorf("%w: arquivo mal formatado (linha %d): %v", appErrors.ErrValidation, pe.Line, pe.Err)
			}
			return nil, fmt.Errorf("%w: falha ao ler o arquivo: %v", appErrors.ErrDataImport, err)
		}
		if len(rec) == 0 {
			continue
		}
		nome := strings.TrimSpace(rec[0])
		if nome == "" {
			continue
		}
		if len(nomes) == 0 && cabecalhosConhecidos[strings.ToLower(nome)] {
			continue
		}
		nomes = append(nomes, nome)
	}
	return nomes, nil
}

func (s *importServiceImpl) ImportarCatalogo(chave, nomeArquivo string, r io.Reader, userSession *auth.SessionData) (*ResultadoImportacao, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	chave = strings.ToUpper(strings.TrimSpace(chave))
	imp, ok := s.importadores[chave]
	if !ok {
		return nil, fmt.Errorf("%w: cadastro '%s' não aceita importação", appErrors.ErrValidation, chave)
	}
	nomeArquivo = filepath.Base(nomeArquivo)
	ext := strings.ToLower(filepath.Ext(nomeArquivo))
	if ext != ".csv" && ext != ".txt" {
		return nil, appErrors.NewValidationError("Envie um arquivo .csv ou .txt.", map[string]string{"arquivo": "extensão inválida"})
	}

	raw, err := io.ReadAll(io.LimitReader(r, maxImportBytes+1))
	if err != nil {
		appLogger.Errorf("Erro ao ler arquivo de importação '%s': %v", nomeArquivo, err)
		return nil, fmt.Errorf("%w: falha ao ler arquivo '%s'", appErrors.ErrDataImport, nomeArquivo)
	}
	if len(raw) > maxImportBytes {
		return nil, appErrors.NewValidationError("Arquivo muito grande.", map[string]string{"arquivo": "limite de 2 MB"})
	}
	conteudo, encoding, err := decodificar(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: arquivo '%s' não pôde ser decodificado como UTF-8 ou Latin-1", appErrors.ErrValidation, nomeArquivo)
	}
	if encoding != "UTF-8" {
		appLogger.Warnf("Arquivo '%s' não é UTF-8 válido; decodificado como %s.", nomeArquivo, encoding)
	}
	nomes, err := lerNomes(conteudo)
	if err != nil {
		return nil, err
	}

	appLogger.Infof("Iniciando importação: Cadastro='%s', Arquivo='%s', Usuário='%s', Linhas=%d", chave, nomeArquivo, userSession.Username, len(nomes))
	criados, ignorados, err := imp.ImportarNomes(nomes, userSession)
	if err != nil {
		registrar(s.auditLogService, userSession, fmt.Sprintf("IMPORT_%s_FAILED", chave),
			fmt.Sprintf("Falha na importação do arquivo '%s': %v", nomeArquivo, err),
			models.JSONMetadata{"arquivo": nomeArquivo, "criados": criados, "error": err.Error()})
		return nil, err
	}

	meta := models.ImportMetadataUpsert{
		Catalogo:         chave,
		OriginalFilename: &nomeArquivo,
		Encoding:         &encoding,
		Criados:          criados,
		Ignorados:        ignorados,
		ImportedBy:       &userSession.Username,
	}
	if _, metaErr := s.importMetadataRepo.Upsert(meta); metaErr != nil {
		appLogger.Warnf("Falha ao atualizar metadados da importação de '%s' (%s): %v", nomeArquivo, chave, metaErr)
	}

	return &ResultadoImportacao{
		Catalogo:  chave,
		Arquivo:   nomeArquivo,
		Encoding:  encoding,
		Linhas:    len(nomes),
		Criados:   criados,
		Ignorados: ignorados,
	}, nil
}

// GetAllImportStatus busca os metadados de todas as importações.
func (s *importServiceImpl) GetAllImportStatus(userSession *auth.SessionData) ([]models.ImportMetadataPublic, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	dbMetas, err := s.importMetadataRepo.GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]models.ImportMetadataPublic, 0, len(dbMetas))
	for i := range dbMetas {
		out = append(out, *models.ToImportMetadataPublic(&dbMetas[i]))
	}
	return out, nil
}

// GetImportStatus busca os metadados de um cadastro específico.
func (s *importServiceImpl) GetImportStatus(chave string, userSession *auth.SessionData) (*models.ImportMetadataPublic, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	dbMeta, err := s.importMetadataRepo.GetByCatalogo(chave)
	if err != nil {
		return nil, err
	}
	return models.ToImportMetadataPublic(dbMeta), nil
}
