// Package resume turns a résumé URL into plain text.
//
// A Fetcher downloads the file, works out whether it is a PDF or a DOCX
// from the Content-Type header or the file's magic bytes, extracts the
// text and collapses whitespace. Every failure along the way (network,
// HTTP status, unknown format, corrupt file) is logged and degrades to an
// empty string, so one bad résumé never fails a whole ranking request.
package resume

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
	"github.com/aanand-mishra/alumni-match-api/internal/metrics"
)

// Format is a résumé file type the Fetcher knows how to read.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatDOCX
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	default:
		return "unknown"
	}
}

// Fetcher downloads and extracts résumé text. It is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	cache    Cache
}

// NewFetcher builds a Fetcher whose downloads time out after
// cfg.DownloadTimeout and read at most cfg.MaxBytes. cache may be nil.
func NewFetcher(cfg config.Resume, cache Cache) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: cfg.DownloadTimeout},
		maxBytes: cfg.MaxBytes,
		cache:    cache,
	}
}

// Text returns the cleaned text of the résumé at url, or "" when it
// cannot be downloaded or read.
func (f *Fetcher) Text(ctx context.Context, url string) string {
	if url == "" {
		return ""
	}

	if f.cache != nil {
		if text, ok := f.cache.Get(ctx, url); ok {
			metrics.ResumeFetches.WithLabelValues(metrics.OutcomeCacheHit).Inc()
			return text
		}
	}

	data, contentType, err := f.download(ctx, url)
	if err != nil {
		metrics.ResumeFetches.WithLabelValues(metrics.OutcomeDownloadError).Inc()
		slog.Warn("resume download failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return ""
	}

	format := DetectFormat(contentType, data)
	var raw string
	switch format {
	case FormatPDF:
		raw, err = extractPDF(data)
	case FormatDOCX:
		raw, err = extractDOCX(data)
	default:
		metrics.ResumeFetches.WithLabelValues(metrics.OutcomeUnsupported).Inc()
		slog.Warn("resume format not supported",
			slog.String("url", url),
			slog.String("content_type", contentType))
		return ""
	}
	if err != nil {
		metrics.ResumeFetches.WithLabelValues(metrics.OutcomeParseError).Inc()
		slog.Warn("resume extract failed",
			slog.String("url", url),
			slog.String("format", format.String()),
			slog.String("error", err.Error()))
		return ""
	}

	text := CleanText(raw)
	metrics.ResumeFetches.WithLabelValues(metrics.OutcomeOK).Inc()

	if f.cache != nil {
		f.cache.Set(ctx, url, text)
	}

	return text
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("download: new request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		// Read one extra byte so an oversized file is detected, not truncated.
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("download: read body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("download: file exceeds %d bytes", f.maxBytes)
	}

	return data, strings.ToLower(resp.Header.Get("Content-Type")), nil
}

// DetectFormat decides how to read a downloaded file from its Content-Type
// header or its magic bytes. PDF is checked before DOCX.
func DetectFormat(contentType string, data []byte) Format {
	contentType = strings.ToLower(contentType)

	if strings.Contains(contentType, "pdf") || bytes.HasPrefix(data, []byte("%PDF")) {
		return FormatPDF
	}
	if strings.Contains(contentType, "word") || strings.Contains(contentType, "docx") ||
		bytes.HasPrefix(data, []byte("PK")) {
		return FormatDOCX
	}
	return FormatUnknown
}

// whitespace covers Unicode spaces such as NBSP, which PDFs emit often,
// plus the C0 separators and NEL that Python's \s also matches.
var whitespace = regexp.MustCompile(`[\s\v\x1c-\x1f\x{85}\p{Z}]+`)

// CleanText collapses every run of whitespace to a single space and trims
// the ends.
func CleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
