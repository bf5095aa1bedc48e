package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"sync_service/internal/models"

	"github.com/shopspring/decimal"
)

// Parser turns a supplier's XML feed into normalized product records.
// Every call fetches the feed fresh; nothing is cached between calls.
type Parser interface {
	FetchAndParse(ctx context.Context, xmlURL string) ([]models.NormalizedProduct, error)
}

var ErrUnknownParserType = errors.New("unknown parser type")

// NewParser maps a supplier's parser_type to its Parser implementation.
// The match is case-insensitive.
func NewParser(parserType string) (Parser, error) {
	switch strings.ToLower(parserType) {
	case "adamhome":
		return NewAdamHome(), nil
	case "homeline":
		return NewHomeline(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownParserType, parserType)
	}
}

// FetchError is a non-2xx response from the feed endpoint.
type FetchError struct {
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// ValidationError is a malformed feed document, annotated with the line
// the decoder choked on when available.
type ValidationError struct {
	Line int
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("XML validation error: %s at line %d", e.Msg, e.Line)
}

// ParseError is a well-formed document without the expected root structure.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return "unexpected feed structure: " + e.Msg
}

func fetchXML(ctx context.Context, client *http.Client, xmlURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, xmlURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "sync-service-xml-parser/1.0")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &FetchError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return io.ReadAll(resp.Body)
}

// validateXML checks well-formedness before any structural decoding so a
// broken feed is rejected with a position instead of a half-parsed tree.
func validateXML(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = xml.HTMLEntity

	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				return &ValidationError{Line: syntaxErr.Line, Msg: syntaxErr.Msg}
			}
			return &ValidationError{Msg: err.Error()}
		}
	}
}

func decodeXML(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = xml.HTMLEntity

	if err := dec.Decode(v); err != nil {
		return &ParseError{Msg: err.Error()}
	}
	return nil
}

var cdataRe = regexp.MustCompile(`(?s)^\s*<!\[CDATA\[(.*?)\]\]>\s*$`)

// cleanCDATA strips a literal CDATA wrapper some vendors escape into text
// fields and trims surrounding whitespace. Idempotent: a clean string
// comes back unchanged.
func cleanCDATA(text string) string {
	if m := cdataRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// parsePrice falls back to zero on unparsable input, matching feeds that
// leave price tags empty.
func parsePrice(text string) decimal.Decimal {
	d, err := decimal.NewFromString(cleanCDATA(text))
	if err != nil {
		return decimal.Zero
	}
	return d
}
