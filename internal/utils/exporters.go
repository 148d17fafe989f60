package utils

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2" // Para XLSX

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
)

// DataInput abstrai a fonte dos dados de uma aba da planilha.
type DataInput interface {
	Headers() []string
	Rows() [][]interface{}
	GetSheetName() string
}

// SliceDataInput é uma implementação de DataInput para linhas já montadas.
type SliceDataInput struct {
	headers   []string
	rows      [][]interface{}
	sheetName string
}

// NewSliceDataInput cria um DataInput a partir de cabeçalhos e linhas.
func NewSliceDataInput(sheetName string, headers []string, rows [][]interface{}) (*SliceDataInput, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: nenhum cabeçalho fornecido para a aba '%s'", appErrors.ErrInvalidInput, sheetName)
	}
	if sheetName == "" {
		sheetName = "Dados"
	}
	return &SliceDataInput{headers: headers, rows: rows, sheetName: sheetName}, nil
}

func (s *SliceDataInput) Headers() []string     { return s.headers }
func (s *SliceDataInput) Rows() [][]interface{} { return s.rows }
func (s *SliceDataInput) GetSheetName() string  { return s.sheetName }

// WriteXLSX monta a pasta de trabalho com uma aba por input e grava em w.
func WriteXLSX(w io.Writer, inputs []DataInput) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: nenhuma aba para exportar", appErrors.ErrExport)
	}

	xlsx := excelize.NewFile()
	defer func() {
		if err := xlsx.Close(); err != nil {
			appLogger.Errorf("Erro ao fechar arquivo XLSX: %v", err)
		}
	}()

	headerStyle, err := xlsx.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1A659E"}, Pattern: 1},
		Font:      &excelize.Font{Color: "FFFFFF", Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    []excelize.Border{{Type: "bottom", Color: "FFFFFF", Style: 1}},
	})
	if err != nil {
		return appErrors.WrapErrorf(appErrors.ErrExport, "falha ao criar estilo do cabeçalho: %v", err)
	}

	for i, input := range inputs {
		sheetName := input.GetSheetName()
		if i == 0 {
			if err := xlsx.SetSheetName("Sheet1", sheetName); err != nil {
				return appErrors.WrapErrorf(appErrors.ErrExport, "falha ao renomear planilha '%s': %v", sheetName, err)
			}
		} else if _, err := xlsx.NewSheet(sheetName); err != nil {
			return appErrors.WrapErrorf(appErrors.ErrExport, "falha ao criar planilha '%s': %v", sheetName, err)
		}

		headers := input.Headers()
		for colIdx, headerVal := range headers {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, 1)
			if err != nil {
				return appErrors.WrapErrorf(appErrors.ErrExport, "coluna %d do cabeçalho de '%s' inválida: %v", colIdx+1, sheetName, err)
			}
			if err := xlsx.SetCellValue(sheetName, cell, headerVal); err != nil {
				return appErrors.WrapErrorf(appErrors.ErrExport, "falha ao escrever cabeçalho %s: %v", cell, err)
			}
			if err := xlsx.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
				return appErrors.WrapErrorf(appErrors.ErrExport, "falha ao aplicar estilo no cabeçalho %s: %v", cell, err)
			}
		}

		for rowIdx, rowData := range input.Rows() {
			for colIdx, cellData := range rowData {
				cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2) // +2 porque cabeçalho está na linha 1
				if err != nil {
					return appErrors.WrapErrorf(appErrors.ErrExport, "célula (%d, %d) de '%s' inválida: %v", colIdx+1, rowIdx+2, sheetName, err)
				}
				if err := xlsx.SetCellValue(sheetName, cell, cellData); err != nil {
					return appErrors.WrapErrorf(appErrors.ErrExport, "falha ao escrever célula %s: %v", cell, err)
				}
			}
		}

		lastCol, err := excelize.ColumnNumberToName(len(headers))
		if err != nil {
			return appErrors.WrapErrorf(appErrors.ErrExport, "falha ao calcular largura das colunas de '%s': %v", sheetName, err)
		}
		if err := xlsx.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
			return appErrors.WrapErrorf(appErrors.ErrExport, "falha ao ajustar largura das colunas de '%s': %v", sheetName, err)
		}
	}
	xlsx.SetActiveSheet(0)

	if err := xlsx.Write(w); err != nil {
		return appErrors.WrapErrorf(appErrors.ErrExport, "falha ao gravar XLSX: %v", err)
	}
	return nil
}

// NomeArquivo gera um nome de arquivo seguro com data e hora.
func NomeArquivo(prefixo string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, prefixo)
	if safe == "" {
		safe = "relatorio"
	}
	return fmt.Sprintf("%s_%s.xlsx", safe, time.Now().Format("20060102_150405"))
}
