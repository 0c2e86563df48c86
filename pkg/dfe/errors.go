package dfe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// snippetLimit limita o trecho do corpo anexado aos erros
const snippetLimit = 200

// ValidationError indica entrada inválida detectada antes de qualquer chamada de rede
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dfe: campo %s inválido: %s", e.Field, e.Reason)
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TransportError indica falha de conexão, TLS, timeout ou status HTTP fora de 2xx
type TransportError struct {
	Endpoint   string
	StatusCode int
	Snippet    string
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dfe: %s respondeu HTTP %d: %s", e.Endpoint, e.StatusCode, e.Snippet)
	}
	return fmt.Sprintf("dfe: falha de comunicação com %s: %v", e.Endpoint, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Timeout informa se a falha foi causada por prazo esgotado
func (e *TransportError) Timeout() bool {
	if e.Cause == nil {
		return e.StatusCode == 504
	}
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}

// TLSFailure informa se a falha ocorreu na validação de certificados ou no handshake.
// Estes erros normalmente exigem intervenção humana (certificado vencido ou incorreto).
func (e *TransportError) TLSFailure() bool {
	if e.Cause == nil {
		return false
	}
	var (
		verifyErr    *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		unknownAuth  x509.UnknownAuthorityError
		invalidCert  x509.CertificateInvalidError
		hostnameErr  x509.HostnameError
		certParseErr *CredentialError
	)
	return errors.As(e.Cause, &verifyErr) ||
		errors.As(e.Cause, &recordErr) ||
		errors.As(e.Cause, &alertErr) ||
		errors.As(e.Cause, &unknownAuth) ||
		errors.As(e.Cause, &invalidCert) ||
		errors.As(e.Cause, &hostnameErr) ||
		errors.As(e.Cause, &certParseErr)
}

// Temporary informa se vale repetir a chamada com backoff
func (e *TransportError) Temporary() bool {
	if e.TLSFailure() {
		return false
	}
	if e.StatusCode != 0 {
		return e.StatusCode >= 500 || e.StatusCode == 429 || e.StatusCode == 408
	}
	if e.Timeout() {
		return true
	}
	return errors.Is(e.Cause, syscall.ECONNRESET) ||
		errors.Is(e.Cause, syscall.ECONNREFUSED) ||
		errors.Is(e.Cause, io.ErrUnexpectedEOF) ||
		errors.Is(e.Cause, io.EOF)
}

// CredentialError indica que o par certificado/chave não pôde ser carregado
type CredentialError struct {
	Cause error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("dfe: credencial inválida: %v", e.Cause)
}

func (e *CredentialError) Unwrap() error {
	return e.Cause
}

// ParseError indica resposta sem o campo cStat (ex.: página HTML de erro)
type ParseError struct {
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dfe: resposta não reconhecida: %s: %s", e.Reason, e.Snippet)
}

// snippet devolve no máximo snippetLimit caracteres do corpo
func snippet(body []byte) string {
	r := []rune(string(body))
	if len(r) > snippetLimit {
		return string(r[:snippetLimit])
	}
	return string(r)
}
