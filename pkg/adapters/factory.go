package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// AdapterConstructor - функция-конструктор адаптера
// Возвращает новый экземпляр адаптера (еще не подключенный)
type AdapterConstructor func() Adapter

// Factory - фабрика для создания адаптеров
// Управляет регистрацией и созданием адаптеров различных типов
type Factory struct {
	registry map[string]AdapterConstructor
	mu       sync.RWMutex
}

// NewFactory создает новую фабрику адаптеров
func NewFactory() *Factory {
	return &Factory{
		registry: make(map[string]AdapterConstructor),
	}
}

// Register регистрирует конструктор адаптера для типа хранилища
//
// Пример:
//
//	factory.Register("redshift", func() adapters.Adapter {
//	    return redshift.NewAdapter()
//	})
func (f *Factory) Register(storeType string, constructor AdapterConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[storeType] = constructor
}

// Unregister удаляет конструктор адаптера
func (f *Factory) Unregister(storeType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registry, storeType)
}

// IsRegistered проверяет, зарегистрирован ли адаптер для данного типа
func (f *Factory) IsRegistered(storeType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.registry[storeType]
	return ok
}

// GetRegisteredTypes возвращает отсортированный список зарегистрированных типов
func (f *Factory) GetRegisteredTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.registry))
	for storeType := range f.registry {
		types = append(types, storeType)
	}
	sort.Strings(types)
	return types
}

// Create создает и подключает адаптер по конфигурации
func (f *Factory) Create(ctx context.Context, cfg Config) (Adapter, error) {
	adapter, err := f.CreateWithoutConnect(cfg.Type)
	if err != nil {
		return nil, err
	}

	if err := adapter.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
	}

	return adapter, nil
}

// CreateWithoutConnect создает адаптер БЕЗ подключения
// Полезно для тестирования или отложенного подключения
func (f *Factory) CreateWithoutConnect(storeType string) (Adapter, error) {
	f.mu.RLock()
	constructor, ok := f.registry[storeType]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown store type: %s (available types: %v): %w",
			storeType, f.GetRegisteredTypes(), ErrConfiguration)
	}

	return constructor(), nil
}

// ========== Global Factory ==========

var globalFactory = NewFactory()

// Register регистрирует адаптер в глобальной фабрике
// Обычно вызывается в init() пакета адаптера
func Register(storeType string, constructor AdapterConstructor) {
	globalFactory.Register(storeType, constructor)
}

// Unregister удаляет адаптер из глобальной фабрики
func Unregister(storeType string) {
	globalFactory.Unregister(storeType)
}

// IsRegistered проверяет регистрацию в глобальной фабрике
func IsRegistered(storeType string) bool {
	return globalFactory.IsRegistered(storeType)
}

// GetRegisteredTypes возвращает типы из глобальной фабрики
func GetRegisteredTypes() []string {
	return globalFactory.GetRegisteredTypes()
}

// New создает и подключает адаптер через глобальную фабрику
//
// Пример:
//
//	adapter, err := adapters.New(ctx, adapters.Config{
//	    Type: "sqlite",
//	    DSN:  "file:app.db",
//	})
//	if err != nil {
//	    return err
//	}
//	defer adapter.Close(ctx)
func New(ctx context.Context, cfg Config) (Adapter, error) {
	return globalFactory.Create(ctx, cfg)
}

// NewWithoutConnect создает адаптер БЕЗ подключения через глобальную фабрику
func NewWithoutConnect(storeType string) (Adapter, error) {
	return globalFactory.CreateWithoutConnect(storeType)
}
