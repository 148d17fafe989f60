package utils

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
)

// Faixas de numeração usadas no cadastro de modelos e nas requisições.
const (
	TamanhoRequisicaoMin = 26
	TamanhoRequisicaoMax = 44

	TamanhoInfantilMin = 26
	TamanhoInfantilMax = 36
	TamanhoAdultoMin   = 34
	TamanhoAdultoMax   = 45

	// LayoutData é o formato das datas recebidas em formulários e filtros.
	LayoutData = "2006-01-02"
)

var folder = cases.Fold()

// SanitizeInput remove caracteres de controle e colapsa espaços repetidos.
func SanitizeInput(inputStr string) string {
	if inputStr == "" {
		return ""
	}
	var sb strings.Builder
	lastWasSpace := false
	for _, r := range inputStr {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				sb.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		sb.WriteRune(r)
		lastWasSpace = false
	}
	return strings.TrimSpace(sb.String())
}

// ChaveNome devolve a forma canônica de um nome para comparação sem distinção
// de maiúsculas. Usa case folding Unicode: "ÇOURO" e "çouro" geram a mesma chave,
// o que o LOWER() do SQLite não garante fora do ASCII.
func ChaveNome(nome string) string {
	return folder.String(SanitizeInput(nome))
}

// MesmoNome compara dois nomes ignorando caixa e espaços extras.
func MesmoNome(a, b string) bool {
	return ChaveNome(a) == ChaveNome(b)
}

// ParseInt converte um campo de formulário em inteiro.
func ParseInt(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, appErrors.NewValidationError("Campo obrigatório: "+field+".", map[string]string{field: "obrigatório"})
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &appErrors.ValidationError{
			Message:    "Valor inválido para " + field + ".",
			Fields:     map[string]string{field: "deve ser um número inteiro"},
			Underlying: err,
		}
	}
	return v, nil
}

// ParsePositiveInt exige inteiro > 0.
func ParsePositiveInt(field, raw string) (int, error) {
	v, err := ParseInt(field, raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, appErrors.NewValidationError("O valor de "+field+" deve ser maior que zero.", map[string]string{field: "deve ser maior que zero"})
	}
	return v, nil
}

// ParseNonNegativeInt exige inteiro >= 0.
func ParseNonNegativeInt(field, raw string) (int, error) {
	v, err := ParseInt(field, raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, appErrors.NewValidationError("O valor de "+field+" não pode ser negativo.", map[string]string{field: "não pode ser negativo"})
	}
	return v, nil
}

// ParseID converte um identificador vindo da URL ou do formulário.
func ParseID(field, raw string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || v == 0 {
		return 0, appErrors.NewValidationError("Identificador inválido: "+field+".", map[string]string{field: "identificador inválido"})
	}
	return v, nil
}

// ParseIDList converte uma lista de ids ignorando entradas vazias.
func ParseIDList(field string, raws []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		id, err := ParseID(field, raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseData lê uma data no formato AAAA-MM-DD (UTC, meia-noite).
func ParseData(field, raw string) (time.Time, error) {
	t, err := time.Parse(LayoutData, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &appErrors.ValidationError{
			Message:    "Data inválida para " + field + " (use AAAA-MM-DD).",
			Fields:     map[string]string{field: "data inválida"},
			Underlying: err,
		}
	}
	return t, nil
}

// InicioDoDia trunca para meia-noite UTC.
func InicioDoDia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NumerosUnicos converte tamanhos para inteiros, remove duplicados e ordena.
func NumerosUnicos(field string, raws []string) ([]int, error) {
	seen := make(map[int]struct{}, len(raws))
	out := make([]int, 0, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		n, err := ParsePositiveInt(field, raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// FaixaTamanhos devolve os números de min a max inclusive.
func FaixaTamanhos(min, max int) []int {
	out := make([]int, 0, max-min+1)
	for n := min; n <= max; n++ {
		out = append(out, n)
	}
	return out
}
