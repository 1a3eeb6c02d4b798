// Package licensing cliente HTTP de la plataforma de distribución de módulos: validación de
// licencias, catálogo, descarga de paquetes y formulario de contacto.
package licensing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/jhoicas/appstore-api/internal/application/ports"
)

var _ ports.LicenseAPI = (*Client)(nil)

const (
	maxJSONBody    = 1 << 20  // 1 MiB
	maxPackageBody = 50 << 20 // 50 MiB
)

// Config acceso a la API remota.
type Config struct {
	BaseURL    string
	InstanceID string
	Secret     string
	Timeout    time.Duration
}

// StatusError respuesta no 2xx de la API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("licensing API HTTP %d", e.Code)
	}
	return fmt.Sprintf("licensing API HTTP %d: %s", e.Code, e.Message)
}

// Client implementa ports.LicenseAPI. Todas las llamadas pasan por un circuit breaker:
// 5 fallos consecutivos (red o 5xx) lo abren durante 10 s.
type Client struct {
	base       *url.URL
	instanceID string
	secret     string
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
	now        func() time.Time
}

func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("licensing: LICENSE_API_URL inválida %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &Client{
		base:       base,
		instanceID: cfg.InstanceID,
		secret:     cfg.Secret,
		http:       &http.Client{Timeout: cfg.Timeout},
		log:        log,
		now:        time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "licensing-api",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("licensing: cambio de estado del circuit breaker")
		},
	})
	return c, nil
}

func (c *Client) Validate(ctx context.Context, req ports.ValidateRequest) (*ports.ValidateResult, error) {
	raw, err := c.call(ctx, http.MethodPost, "/v1/licenses/validate", nil, req, maxJSONBody)
	if err != nil {
		return nil, err
	}
	var res ports.ValidateResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("licensing: respuesta de validación inválida: %w", err)
	}
	return &res, nil
}

func (c *Client) Catalog(ctx context.Context) ([]ports.CatalogEntry, error) {
	raw, err := c.call(ctx, http.MethodGet, "/v1/catalog", nil, nil, maxJSONBody)
	if err != nil {
		return nil, err
	}
	var res struct {
		Modules []ports.CatalogEntry `json:"modules"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("licensing: catálogo inválido: %w", err)
	}
	return res.Modules, nil
}

func (c *Client) Download(ctx context.Context, key, version string) ([]byte, error) {
	q := url.Values{}
	if version != "" {
		q.Set("version", version)
	}
	return c.call(ctx, http.MethodGet, "/v1/modules/"+url.PathEscape(key)+"/download", q, nil, maxPackageBody)
}

func (c *Client) SubmitContact(ctx context.Context, msg ports.ContactMessage) error {
	raw, err := c.call(ctx, http.MethodPost, "/v1/contact", nil, msg, maxJSONBody)
	if err != nil {
		return err
	}
	var res struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("licensing: respuesta de contacto inválida: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("licensing: contacto rechazado: %s", res.Message)
	}
	return nil
}

// call serializa, firma y envía a través del breaker.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload any, limit int64) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("licensing: serializar request: %w", err)
		}
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.send(ctx, method, path, query, body, limit)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("licensing: API no disponible (circuit breaker abierto): %w", err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, limit int64) ([]byte, error) {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawPath = ""
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("licensing: crear request: %w", err)
	}
	ts := c.now().Unix()
	req.Header.Set(HeaderInstanceID, c.instanceID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, Sign(c.secret, ts, method, req.URL.EscapedPath(), body))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("licensing: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("licensing: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("licensing: leer respuesta: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("licensing: respuesta supera %d bytes", limit)
	}

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("licensing: llamada remota")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage extrae "message" de un cuerpo JSON de error; si no, un recorte del texto.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
