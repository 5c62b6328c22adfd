package apperrors

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrSchemaDiscovery       = errors.New("schema discovery failed")
	ErrClassification        = errors.New("query classification failed")
	ErrUnsupportedDatasource = errors.New("unsupported datasource type")
	ErrNoSession             = errors.New("no datasource session in context")
)
