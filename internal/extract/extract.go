package extract

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Content — результат извлечения текста.
type Content struct {
	Text        string
	ContentType string
}

// Extractor извлекает текст и тип содержимого из исходного файла.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (Content, error)
}

// Document — данные для полнотекстовой индексации.
type Document struct {
	FileRef  string
	Tenant   string
	FileName string
	Text     string
	Token    string
}

// Indexer регистрирует извлечённый текст в поиске.
type Indexer interface {
	Index(ctx context.Context, doc Document) error
}

// SniffExtractor определяет тип по первым 512 байтам; текст отдаёт только для text/*.
type SniffExtractor struct {
	// MaxText ограничивает размер возвращаемого текста (0 — 8 MiB).
	MaxText int64
}

func (s SniffExtractor) Extract(ctx context.Context, r io.Reader) (Content, error) {
	limit := s.MaxText
	if limit <= 0 {
		limit = 8 << 20
	}
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Content{}, err
	}
	ct := http.DetectContentType(head)
	if !strings.HasPrefix(ct, "text/") {
		return Content{ContentType: ct}, nil
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, io.LimitReader(br, limit)); err != nil {
		return Content{}, err
	}
	text := sb.String()
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return Content{Text: text, ContentType: ct}, nil
}

// NopIndexer ничего не индексирует и всегда успешен.
type NopIndexer struct{}

func (NopIndexer) Index(ctx context.Context, doc Document) error { return nil }
