package dfe

import (
	"context"
	"time"

	"github.com/hugohenrick/nfe-dfe/pkg/logger"
)

// Client executa as operações de distribuição e manifestação do destinatário.
// Não guarda estado entre chamadas: o NSU pertence a quem chama.
type Client struct {
	transport  Transport
	parser     Parser
	endpoints  Endpoints
	logger     logger.Logger
	now        func() time.Time
	signEvents bool
}

// Option configura o Client
type Option func(*Client)

// WithTransport substitui o transporte HTTPS
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithParser substitui o parser de respostas
func WithParser(p Parser) Option {
	return func(c *Client) {
		c.parser = p
	}
}

// WithEndpoints substitui a tabela de serviços
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		c.endpoints = e
	}
}

// WithLogger define o logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock define a fonte de horário usada no dhEvento
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithoutEventSignature envia eventos sem assinatura (apenas para testes de leiaute)
func WithoutEventSignature() Option {
	return func(c *Client) {
		c.signEvents = false
	}
}

// NewClient cria o cliente com transporte HTTPS e parser por expressões regulares
func NewClient(opts ...Option) *Client {
	c := &Client{
		transport:  NewHTTPSTransport(nil),
		parser:     NewRegexParser(),
		endpoints:  DefaultEndpoints,
		logger:     logger.NewNopLogger(),
		now:        time.Now,
		signEvents: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryNewDocuments busca os documentos posteriores ao último NSU conhecido
func (c *Client) QueryNewDocuments(ctx context.Context, identity Identity, env Environment, last NSU, credential Credential) (*DistributionResult, error) {
	body, err := BuildSyncBody(identity, env, last)
	if err != nil {
		return nil, err
	}
	return c.distribute(ctx, "distNSU", identity, env, body, credential)
}

// QueryByNSU busca o documento de um NSU específico
func (c *Client) QueryByNSU(ctx context.Context, identity Identity, env Environment, nsu NSU, credential Credential) (*DistributionResult, error) {
	body, err := BuildNSUBody(identity, env, nsu)
	if err != nil {
		return nil, err
	}
	return c.distribute(ctx, "consNSU", identity, env, body, credential)
}

// QueryByAccessKey busca um documento pela chave de acesso, sem afetar o NSU
func (c *Client) QueryByAccessKey(ctx context.Context, identity Identity, env Environment, key AccessKey, credential Credential) (*DistributionResult, error) {
	body, err := BuildAccessKeyBody(identity, env, key)
	if err != nil {
		return nil, err
	}
	return c.distribute(ctx, "consChNFe", identity, env, body, credential)
}

func (c *Client) distribute(ctx context.Context, operation string, identity Identity, env Environment, body string, credential Credential) (*DistributionResult, error) {
	raw, err := c.send(ctx, operation, identity, env, OperationDistribution, body, credential)
	if err != nil {
		return nil, err
	}

	result, err := c.parser.ParseDistribution(raw)
	if err != nil {
		c.logger.Error("resposta de distribuição não reconhecida", "operation", operation, "error", err)
		return nil, err
	}

	c.logger.Info("distribuição DF-e concluída",
		"operation", operation,
		"environment", env,
		"cStat", result.Status,
		"ultNSU", result.NextNSU.String(),
		"maxNSU", result.MaxNSU.String(),
		"documents", len(result.Documents))
	return result, nil
}

// RegisterManifestation envia um evento de manifestação do destinatário.
// Rejeições da SEFAZ voltam no resultado, não como erro.
func (c *Client) RegisterManifestation(ctx context.Context, identity Identity, env Environment, key AccessKey, kind ManifestationKind, justification string, credential Credential) (*ManifestationResult, error) {
	body, err := BuildManifestationBody(identity, env, ManifestationRequest{
		AccessKey:     key,
		Kind:          kind,
		Justification: justification,
		Sequence:      1,
		IssuedAt:      c.now(),
	})
	if err != nil {
		return nil, err
	}

	if c.signEvents {
		signer, err := NewEventSigner(credential)
		if err != nil {
			return nil, err
		}
		if body, err = signer.Sign(body); err != nil {
			return nil, &ValidationError{Field: "event", Reason: err.Error()}
		}
	}

	raw, err := c.send(ctx, "manifestacao", identity, env, OperationEvent, body, credential)
	if err != nil {
		return nil, err
	}

	result, err := c.parser.ParseManifestation(raw)
	if err != nil {
		c.logger.Error("resposta de evento não reconhecida", "error", err)
		return nil, err
	}

	c.logger.Info("manifestação enviada",
		"environment", env,
		"tpEvento", kind,
		"cStat", result.Status,
		"eventStatus", result.EventStatus,
		"protocol", result.Protocol)
	return result, nil
}

func (c *Client) send(ctx context.Context, operation string, identity Identity, env Environment, op Operation, body string, credential Credential) ([]byte, error) {
	endpoint, err := c.endpoints.Lookup(env, op)
	if err != nil {
		return nil, err
	}

	start := c.now()
	raw, err := c.transport.Send(ctx, Request{
		Endpoint:   endpoint,
		Envelope:   WrapEnvelope(body, op),
		Credential: credential,
	})
	if err != nil {
		c.logger.Error("falha na comunicação com a SEFAZ",
			"operation", operation,
			"environment", env,
			"uf", identity.State,
			"error", err)
		return nil, err
	}

	c.logger.Debug("resposta recebida da SEFAZ",
		"operation", operation,
		"environment", env,
		"bytes", len(raw),
		"duration", c.now().Sub(start))
	return raw, nil
}
