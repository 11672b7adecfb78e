package dto

// defaultPageLimit filas por página cuando la consulta no indica limit.
const defaultPageLimit = 50

// PageRequest query ?limit=&offset= de los listados del libro de movimientos.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// DefaultPage limit ausente o no positivo pasa a 50; offset negativo a 0.
// El tope superior lo aplica el caso de uso.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse página devuelta. Total es el tamaño de esta página; HasMore indica que
// la página vino llena y puede haber más filas.
type PageResponse struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// NewPageResponse arma la página a partir de lo pedido y lo devuelto.
func NewPageResponse(limit, offset, returned int) PageResponse {
	return PageResponse{Limit: limit, Offset: offset, Total: returned, HasMore: limit > 0 && returned >= limit}
}

// ErrorResponse cuerpo de error HTTP: code estable para el cliente y mensaje legible.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
