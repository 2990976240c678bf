package adapters

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration - не хватает обязательной опции (запрос, ключ, выражение, таблица)
	// Возвращается до любого сетевого вызова
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedOperation - стратегия известна, но не реализована для хранилища
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrUnrecognizedStrategy - имя стратегии не входит в список известных
	// Вызывающая сторона логирует и не прерывает процесс
	ErrUnrecognizedStrategy = errors.New("unrecognized load strategy")
)

// BackendError - ошибка клиента хранилища при connect/read/write
type BackendError struct {
	Backend string // "dynamodb", "mssql", ...
	Op      string // "connect", "scan", "insert", ...
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError оборачивает ошибку драйвера
func NewBackendError(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Op: op, Err: err}
}

// Unsupported строит ErrUnsupportedOperation для стратегии на хранилище
func Unsupported(backend string, strategy LoadStrategy) error {
	return fmt.Errorf("%w: %s strategy is not implemented for %s", ErrUnsupportedOperation, strategy, backend)
}

// Configuration строит ErrConfiguration с пояснением
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
