package services

// Pagina descreve a página atual de uma listagem.
type Pagina struct {
	Numero       int   `json:"numero"`
	Tamanho      int   `json:"tamanho"`
	Total        int64 `json:"total"`
	TotalPaginas int   `json:"total_paginas"`
}

// TemAnterior e TemProxima alimentam os links de navegação.
func (p Pagina) TemAnterior() bool { return p.Numero > 1 }
func (p Pagina) TemProxima() bool  { return p.Numero < p.TotalPaginas }

// Offset é o deslocamento SQL da página.
func (p Pagina) Offset() int {
	return (p.Numero - 1) * p.Tamanho
}

// novaPagina ajusta o número pedido para dentro do intervalo válido:
// abaixo de 1 vira 1, acima da última vira a última.
func novaPagina(numero, tamanho int, total int64) Pagina {
	if tamanho <= 0 {
		tamanho = 1
	}
	totalPaginas := int((total + int64(tamanho) - 1) / int64(tamanho))
	if totalPaginas < 1 {
		totalPaginas = 1
	}
	if numero < 1 {
		numero = 1
	}
	if numero > totalPaginas {
		numero = totalPaginas
	}
	return Pagina{Numero: numero, Tamanho: tamanho, Total: total, TotalPaginas: totalPaginas}
}
