package gateway

import "errors"

// Gateway errors. Query and column errors carry the offending name.
var (
	ErrTableNotAllowed     = errors.New("table not allowed")
	ErrOperationNotAllowed = errors.New("operation not allowed on table")
	ErrUnknownColumn       = errors.New("coluna desconhecida")
	ErrInvalidQuery        = errors.New("parâmetro inválido")
	ErrForbidden           = errors.New("forbidden")
	ErrNoCompany           = errors.New("identity has no company")
)
