package workspace

import "errors"

// Local validation failures. No request is sent when one of these is returned.
var (
	ErrNoFile     = errors.New("no file selected")
	ErrNoMinutes  = errors.New("no minutes or file to process")
	ErrFileLocked = errors.New("file cannot change while minutes exist")

	errEmptyResult = errors.New("empty result from minutes service")
)

// User-facing messages.
const (
	msgNoFile           = "Selecciona un documento antes de generar el acta."
	msgUnreadableFile   = "No se pudo leer el documento: "
	msgGenerateFailed   = "Error generando acta: "
	msgGenerateNetwork  = "Error de red al generar acta"
	msgNothingToProcess = "No hay acta o archivo para procesar."
	msgCritiqueFailed   = "Error al procesar la crítica: "
	msgCritiqueNetwork  = "Error de red al procesar la crítica"
)

// OperationError carries the message shown in the error banner together
// with its cause.
type OperationError struct {
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return e.Message
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
