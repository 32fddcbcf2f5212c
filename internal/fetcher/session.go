package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/Jeffail/gabs/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/publicsuffix"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
)

const (
	csrfCookie = "csrf_token"
	userAgent  = "Mozilla/5.0 (compatible; gocoax-stats)"

	// maxResponseBytes bounds a register page; real pages are a few KB
	maxResponseBytes = 1 << 20
)

var tracer = otel.Tracer("github.com/dewgenenny/gocoax-stats/internal/fetcher")

// Config holds the credentials and transport settings shared by every adapter
type Config struct {
	Scheme             string
	Username           string
	Password           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Session is an authenticated conversation with one adapter. It is not safe
// for concurrent use; the daemon keeps one session per host per poll.
type Session struct {
	host    string
	baseURL *url.URL
	cfg     Config
	client  *http.Client
	csrf    string
}

// NewSession prepares a session for host. No request is made until Handshake.
func NewSession(host string, cfg Config) (*Session, error) {
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	base, err := url.Parse(fmt.Sprintf("%s://%s", cfg.Scheme, host))
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Session{
		host:    host,
		baseURL: base,
		cfg:     cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
			},
		},
	}, nil
}

// Host returns the adapter this session talks to.
func (s *Session) Host() string {
	return s.host
}

// Close releases idle connections held by the session.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

// Handshake loads an HTML page so the adapter issues a CSRF cookie.
func (s *Session) Handshake(ctx context.Context, page Endpoint) error {
	if err := s.get(ctx, page); err != nil {
		return err
	}

	for _, c := range s.client.Jar.Cookies(s.baseURL) {
		if c.Name == csrfCookie && c.Value != "" {
			s.csrf = c.Value
			return nil
		}
	}
	return &FetchError{Host: s.host, Endpoint: page.Name, Cause: ErrNoCSRFToken}
}

func (s *Session) get(ctx context.Context, ep Endpoint) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL.String()+ep.Path, nil)
	if err != nil {
		return &FetchError{Host: s.host, Endpoint: ep.Name, Cause: err}
	}
	s.decorate(req, DevStatus)
	req.Header.Set("Accept", "text/html, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return &FetchError{Host: s.host, Endpoint: ep.Name, Cause: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return &FetchError{Host: s.host, Endpoint: ep.Name, Status: resp.StatusCode}
	}
	return nil
}

// Fetch posts {"data": args} to a register endpoint and returns the hex words
// of the {"data": [...]} reply.
func (s *Session) Fetch(ctx context.Context, ep Endpoint, args ...int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "mocad.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("mocad.host", s.host),
		attribute.String("mocad.endpoint", ep.Name),
	)

	words, err := s.fetch(ctx, ep, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("mocad.words", len(words)))
	return words, nil
}

func (s *Session) fetch(ctx context.Context, ep Endpoint, args []int) ([]string, error) {
	body, err := encodePayload(args)
	if err != nil {
		return nil, &FetchError{Host: s.host, Endpoint: ep.Name, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL.String()+ep.Path, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Host: s.host, Endpoint: ep.Name, Cause: err}
	}
	s.decorate(req, DevStatus)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Host: s.host, Endpoint: ep.Name, Cause: err}
	}
	defer resp.Body.Close()

	logging.Debug("register fetched",
		logging.Host(s.host),
		logging.Endpoint(ep.Name),
		logging.Duration("fetch", time.Since(start)),
		"http_status", resp.StatusCode,
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Host: s.host, Endpoint: ep.Name, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &FetchError{Host: s.host, Endpoint: ep.Name, Cause: err}
	}

	words, err := decodeEnvelope(data)
	if err != nil {
		return nil, &FetchError{Host: s.host, Endpoint: ep.Name, Cause: err}
	}
	return words, nil
}

// decorate adds the browser-like headers the adapter firmware checks.
func (s *Session) decorate(req *http.Request, referer Endpoint) {
	origin := s.baseURL.String()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+referer.Path)
	if s.csrf != "" {
		req.Header.Set("X-CSRF-TOKEN", s.csrf)
	}
	if s.cfg.Username != "" || s.cfg.Password != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}
}

// encodePayload builds {"data": [args...]}, with an empty array when args is empty.
func encodePayload(args []int) ([]byte, error) {
	payload := gabs.New()
	if _, err := payload.Array("data"); err != nil {
		return nil, err
	}
	for _, a := range args {
		if err := payload.ArrayAppend(a, "data"); err != nil {
			return nil, err
		}
	}
	return payload.Bytes(), nil
}

// decodeEnvelope extracts the string words of a {"data": [...]} reply.
func decodeEnvelope(body []byte) ([]string, error) {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON reply: %w", err)
	}
	if !parsed.Exists("data") {
		return nil, fmt.Errorf("reply has no data field")
	}

	data := parsed.Path("data")
	if _, ok := data.Data().([]interface{}); !ok {
		return nil, fmt.Errorf("reply data is not an array")
	}

	children := data.Children()
	words := make([]string, 0, len(children))
	for i, child := range children {
		switch v := child.Data().(type) {
		case string:
			words = append(words, v)
		case float64:
			if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
				return nil, fmt.Errorf("data[%d] is not a 32-bit word: %v", i, v)
			}
			words = append(words, fmt.Sprintf("0x%08x", uint32(v)))
		default:
			return nil, fmt.Errorf("data[%d] has unexpected type %T", i, v)
		}
	}
	return words, nil
}
