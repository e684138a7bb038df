package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"tutor-chat/internal/ports"
)

// FileSource читает код из локального файла.
type FileSource struct {
	filePath string
}

// NewFileSource создает новый экземпляр FileSource.
func NewFileSource(filePath string) ports.CodeSource {
	return &FileSource{filePath: filePath}
}

// Name возвращает базовое имя файла.
func (s *FileSource) Name() string {
	return filepath.Base(s.filePath)
}

// Fetch читает файл по указанному пути и возвращает его содержимое.
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.filePath == "" {
		return nil, fmt.Errorf("не указан путь к файлу")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", s.filePath, err)
	}
	if info.Size() > MaxCodeSize {
		return nil, fmt.Errorf("file %s: %w", s.filePath, ErrTooLarge)
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", s.filePath, err)
	}

	return data, nil
}
