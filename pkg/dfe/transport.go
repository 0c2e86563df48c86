package dfe

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

const (
	contentTypeSOAP12 = "application/soap+xml; charset=utf-8"
	maxResponseBytes  = 64 << 20
)

// Request é uma chamada SOAP a um serviço da SEFAZ
type Request struct {
	Endpoint   Endpoint
	Envelope   string
	Credential Credential
}

// Transport envia um envelope e devolve o corpo bruto da resposta
type Transport interface {
	Send(ctx context.Context, req Request) ([]byte, error)
}

// HTTPSConfig contém as configurações do cliente HTTPS
type HTTPSConfig struct {
	MinTLSVersion uint16
	MaxTLSVersion uint16
	// RootCAs adiciona autoridades confiáveis; nil usa as do sistema
	RootCAs   *x509.CertPool
	Timeout   time.Duration
	UserAgent string
}

// DefaultHTTPSConfig retorna a configuração padrão
func DefaultHTTPSConfig() *HTTPSConfig {
	return &HTTPSConfig{
		MinTLSVersion: TLS12,
		MaxTLSVersion: TLS13,
		Timeout:       30 * time.Second,
		UserAgent:     "nfe-dfe/1.0",
	}
}

// HTTPSTransport envia envelopes autenticados com o certificado do cliente.
// Cada chamada usa um http.Transport próprio, descartado ao final.
type HTTPSTransport struct {
	config *HTTPSConfig
}

// NewHTTPSTransport cria o transporte HTTPS
func NewHTTPSTransport(config *HTTPSConfig) *HTTPSTransport {
	if config == nil {
		config = DefaultHTTPSConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultHTTPSConfig().Timeout
	}
	if config.MinTLSVersion == 0 {
		config.MinTLSVersion = TLS12
	}
	return &HTTPSTransport{config: config}
}

// Send executa um único POST ao serviço
func (t *HTTPSTransport) Send(ctx context.Context, req Request) ([]byte, error) {
	pair, err := req.Credential.KeyPair()
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint.URL, Cause: err}
	}

	tlsConfig := &tls.Config{
		MinVersion:   t.config.MinTLSVersion,
		MaxVersion:   t.config.MaxTLSVersion,
		Certificates: []tls.Certificate{pair},
		RootCAs:      t.config.RootCAs,
		// A SEFAZ pede renegociação em alguns serviços para solicitar o certificado
		Renegotiation: tls.RenegotiateOnceAsClient,
	}

	transport := &http.Transport{
		TLSClientConfig: tlsConfig,
		DialContext: (&net.Dialer{
			Timeout:   t.config.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   t.config.Timeout,
		ResponseHeaderTimeout: t.config.Timeout,
		DisableKeepAlives:     true,
		ForceAttemptHTTP2:     false,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   t.config.Timeout,
		// redirecionamentos não são seguidos: o 3xx vira TransportError
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint.URL, bytes.NewReader([]byte(req.Envelope)))
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint.URL, Cause: fmt.Errorf("falha ao criar requisição: %w", err)}
	}
	httpReq.Header.Set("Content-Type", fmt.Sprintf(`%s; action="%s"`, contentTypeSOAP12, req.Endpoint.Action))
	httpReq.Header.Set("SOAPAction", req.Endpoint.Action)
	if t.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", t.config.UserAgent)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint.URL, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint.URL, StatusCode: 0, Cause: fmt.Errorf("falha ao ler resposta: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Endpoint:   req.Endpoint.URL,
			StatusCode: resp.StatusCode,
			Snippet:    snippet(body),
		}
	}

	return body, nil
}
