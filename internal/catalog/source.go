package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrUnavailable = errors.New("catalog source unavailable")
	ErrBadStatus   = errors.New("catalog source bad status")
	ErrBadPayload  = errors.New("catalog source bad payload")
)

const maxPayloadBytes = 8 << 20

// Shape selects how a source's response is interpreted.
type Shape int

const (
	// ShapeList requires a 2xx status and a bare JSON array.
	ShapeList Shape = iota
	// ShapeEnvelope ignores the status and accepts either a bare array or
	// an object carrying the array under "products".
	ShapeEnvelope
)

// Source fetches the product list from one HTTP endpoint.
type Source struct {
	Name   string
	URL    string
	Shape  Shape
	Client *http.Client
}

// NewSource builds a source. A zero timeout means requests are never cut
// short by the client.
func NewSource(name, url string, shape Shape, timeout time.Duration) *Source {
	return &Source{
		Name:   name,
		URL:    url,
		Shape:  shape,
		Client: &http.Client{Timeout: timeout},
	}
}

func (s *Source) Fetch(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, s.Name, err)
	}
	defer resp.Body.Close()

	if s.Shape == ShapeList && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s: status=%d", ErrBadStatus, s.Name, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, s.Name, err)
	}

	switch s.Shape {
	case ShapeEnvelope:
		return decodeEnvelope(s.Name, raw)
	default:
		return decodeList(s.Name, raw)
	}
}

// decodeList requires a JSON array; null or any other value is a bad
// payload.
func decodeList(name string, raw []byte) ([]Product, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %s: body is not a list", ErrBadPayload, name)
	}

	var out []Product
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadPayload, name, err)
	}
	return out, nil
}

func decodeEnvelope(name string, raw []byte) ([]Product, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return decodeList(name, trimmed)
	}

	var env struct {
		Products json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadPayload, name, err)
	}
	if len(env.Products) == 0 || bytes.Equal(env.Products, []byte("null")) {
		return nil, fmt.Errorf("%w: %s: no product list in body", ErrBadPayload, name)
	}
	return decodeList(name, env.Products)
}
