package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"tutor-chat/internal/ports"
)

// URLSource скачивает код по HTTP, например файл, присланный боту.
type URLSource struct {
	client *http.Client
	url    string
	name   string
}

// NewURLSource создает источник. Если client равен nil, используется http.DefaultClient.
func NewURLSource(client *http.Client, url, name string) ports.CodeSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &URLSource{client: client, url: url, name: name}
}

// Name возвращает исходное имя файла.
func (s *URLSource) Name() string {
	return s.name
}

// Fetch скачивает содержимое. Ответ больше MaxCodeSize отклоняется.
func (s *URLSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", s.name, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxCodeSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.name, err)
	}
	if len(data) > MaxCodeSize {
		return nil, fmt.Errorf("file %s: %w", s.name, ErrTooLarge)
	}

	return data, nil
}
