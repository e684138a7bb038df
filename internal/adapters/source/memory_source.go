package source

import (
	"context"
	"fmt"

	"tutor-chat/internal/ports"
)

// MemorySource отдает код, уже находящийся в памяти.
type MemorySource struct {
	name string
	data []byte
}

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(name string, data []byte) ports.CodeSource {
	return &MemorySource{name: name, data: data}
}

// Name возвращает имя, под которым зарегистрированы данные.
func (s *MemorySource) Name() string {
	return s.name
}

// Fetch возвращает данные из памяти.
func (s *MemorySource) Fetch(context.Context) ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("данные не установлены")
	}

	// Копия, чтобы вызывающий код не изменил исходный буфер
	dataCopy := make([]byte, len(s.data))
	copy(dataCopy, s.data)

	return dataCopy, nil
}
