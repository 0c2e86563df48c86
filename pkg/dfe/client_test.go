package dfe

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransport devolve uma resposta fixa e guarda as requisições recebidas
type stubTransport struct {
	mu       sync.Mutex
	body     string
	err      error
	requests []Request
}

func (s *stubTransport) Send(ctx context.Context, req Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

func (s *stubTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 10, 30, 0, 0, time.FixedZone("BRT", -3*3600))
}

func TestClient_QueryNewDocuments(t *testing.T) {
	cred, _, _ := testCredential(t)
	stub := &stubTransport{body: distributionResponse(
		`<cStat>138</cStat><xMotivo>Documento(s) localizado(s)</xMotivo>` +
			`<ultNSU>000000000000042</ultNSU><maxNSU>000000000000050</maxNSU><loteDistDFeInt>` +
			`<docZip NSU="000000000000042" schema="resNFe_v1.01.xsd">H4sIAAAA</docZip>` +
			`<docZip NSU="000000000000042" schema="resEvento_v1.01.xsd">H4sIBBBB</docZip>` +
			`</loteDistDFeInt>`)}
	client := NewClient(WithTransport(stub))

	result, err := client.QueryNewDocuments(context.Background(), testIdentity(), Homologation, "41", cred)
	require.NoError(t, err)

	assert.Equal(t, "42", result.NextNSU.String())
	assert.Equal(t, "50", result.MaxNSU.String())
	assert.Len(t, result.Documents, 2)
	assert.False(t, result.InSync())

	require.Equal(t, 1, stub.calls())
	req := stub.requests[0]
	assert.Equal(t, DefaultEndpoints[Homologation][OperationDistribution], req.Endpoint)
	assert.Contains(t, req.Envelope, "<ultNSU>000000000000041</ultNSU>")
	assert.Contains(t, req.Envelope, "nfeDistDFeInteresse")
	assert.Equal(t, cred, req.Credential)
}

func TestClient_QueryNewDocuments_FirstSync(t *testing.T) {
	stub := &stubTransport{body: distributionResponse(`<cStat>137</cStat><xMotivo>Nenhum documento localizado</xMotivo>`)}
	client := NewClient(WithTransport(stub))

	result, err := client.QueryNewDocuments(context.Background(), testIdentity(), Production, "", Credential{})
	require.NoError(t, err)

	assert.Equal(t, StatusNoDocuments, result.Status)
	assert.True(t, result.InSync())
	assert.Contains(t, stub.requests[0].Envelope, "<ultNSU>000000000000000</ultNSU>")
	assert.Contains(t, stub.requests[0].Envelope, "<tpAmb>1</tpAmb>")
	assert.Equal(t, DefaultEndpoints[Production][OperationDistribution].URL, stub.requests[0].Endpoint.URL)
}

func TestClient_TransportErrorPropagates(t *testing.T) {
	stub := &stubTransport{err: &TransportError{Endpoint: "https://hom1", StatusCode: http.StatusInternalServerError, Snippet: "erro"}}
	client := NewClient(WithTransport(stub))

	_, err := client.QueryNewDocuments(context.Background(), testIdentity(), Homologation, "41", Credential{})

	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, 500, tErr.StatusCode)
	assert.Equal(t, 1, stub.calls(), "no automatic retries")
}

func TestClient_HTTP500FromServer(t *testing.T) {
	cred, _, _ := testCredential(t)
	server, roots := newMTLSServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	})
	endpoints := Endpoints{Homologation: {OperationDistribution: {URL: server.URL, Action: "acao"}}}
	client := NewClient(
		WithEndpoints(endpoints),
		WithTransport(NewHTTPSTransport(&HTTPSConfig{RootCAs: roots, Timeout: 5 * time.Second})),
	)

	_, err := client.QueryNewDocuments(context.Background(), testIdentity(), Homologation, "41", cred)

	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, http.StatusInternalServerError, tErr.StatusCode)
}

func TestClient_ValidationBeforeNetwork(t *testing.T) {
	stub := &stubTransport{}
	client := NewClient(WithTransport(stub))
	ctx := context.Background()

	_, err := client.QueryNewDocuments(ctx, Identity{TaxID: "abc"}, Homologation, "1", Credential{})
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = client.QueryByAccessKey(ctx, testIdentity(), Homologation, "123", Credential{})
	assert.True(t, errors.As(err, &vErr))

	_, err = client.QueryByNSU(ctx, testIdentity(), Homologation, "x", Credential{})
	assert.True(t, errors.As(err, &vErr))

	_, err = client.RegisterManifestation(ctx, testIdentity(), Homologation, testAccessKey, Awareness, "", Credential{})
	assert.True(t, errors.As(err, &vErr), "invalid credential is rejected before sending")

	assert.Zero(t, stub.calls())
}

func TestClient_ParseErrorPropagates(t *testing.T) {
	stub := &stubTransport{body: "<html><body>Serviço indisponível</body></html>"}
	client := NewClient(WithTransport(stub))

	_, err := client.QueryNewDocuments(context.Background(), testIdentity(), Homologation, "1", Credential{})

	var pErr *ParseError
	assert.True(t, errors.As(err, &pErr))
}

func TestClient_QueryByAccessKey_Idempotent(t *testing.T) {
	stub := &stubTransport{body: distributionResponse(
		`<cStat>138</cStat><xMotivo>Documento localizado</xMotivo><ultNSU>000000000000000</ultNSU>` +
			`<maxNSU>000000000000000</maxNSU><loteDistDFeInt>` +
			`<docZip NSU="000000000000077" schema="procNFe_v4.00.xsd">H4sIAAAA</docZip></loteDistDFeInt>`)}
	client := NewClient(WithTransport(stub))
	ctx := context.Background()

	first, err := client.QueryByAccessKey(ctx, testIdentity(), Homologation, testAccessKey, Credential{})
	require.NoError(t, err)
	second, err := client.QueryByAccessKey(ctx, testIdentity(), Homologation, testAccessKey, Credential{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, stub.requests[0].Envelope, stub.requests[1].Envelope)
	assert.Contains(t, stub.requests[0].Envelope, "<chNFe>"+testAccessKey+"</chNFe>")
	assert.NotContains(t, stub.requests[0].Envelope, "ultNSU")
}

func TestClient_QueryByNSU(t *testing.T) {
	stub := &stubTransport{body: distributionResponse(`<cStat>138</cStat><xMotivo>ok</xMotivo>`)}
	client := NewClient(WithTransport(stub))

	_, err := client.QueryByNSU(context.Background(), testIdentity(), Homologation, "77", Credential{})
	require.NoError(t, err)
	assert.Contains(t, stub.requests[0].Envelope, "<consNSU><NSU>000000000000077</NSU></consNSU>")
}

func TestClient_RegisterManifestation_RejectionIsResult(t *testing.T) {
	cred, _, _ := testCredential(t)
	stub := &stubTransport{body: manifestationResponse("128", "596")}
	client := NewClient(WithTransport(stub), WithClock(fixedClock))

	result, err := client.RegisterManifestation(context.Background(), testIdentity(), Homologation, testAccessKey, NotPerformed, "", cred)
	require.NoError(t, err)

	assert.Equal(t, StatusBatchProcessed, result.Status)
	assert.Equal(t, StatusCode("596"), result.EventStatus)
	assert.False(t, result.Registered())

	require.Equal(t, 1, stub.calls())
	req := stub.requests[0]
	assert.Equal(t, DefaultEndpoints[Homologation][OperationEvent], req.Endpoint)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(req.Envelope))
	inf := doc.FindElement("//infEvento")
	require.NotNil(t, inf)
	assert.Equal(t, "210240", inf.FindElement("tpEvento").Text())
	assert.Equal(t, "2024-01-15T10:30:00-03:00", inf.FindElement("dhEvento").Text())
	assert.Nil(t, inf.FindElement("detEvento/xJust"))
	assert.NotNil(t, doc.FindElement("//evento/Signature/SignatureValue"))
}

func TestClient_RegisterManifestation_Registered(t *testing.T) {
	stub := &stubTransport{body: manifestationResponse("128", "135")}
	client := NewClient(WithTransport(stub), WithoutEventSignature())

	result, err := client.RegisterManifestation(context.Background(), testIdentity(), Homologation, testAccessKey, Confirmation, "", Credential{})
	require.NoError(t, err)

	assert.True(t, result.Registered())
	assert.Equal(t, "891240000012345", result.Protocol)
	assert.NotContains(t, stub.requests[0].Envelope, "Signature")
}

func TestClient_ConcurrentCalls(t *testing.T) {
	stub := &stubTransport{body: distributionResponse(`<cStat>137</cStat><xMotivo>Nenhum documento</xMotivo>`)}
	client := NewClient(WithTransport(stub))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			env := Homologation
			if i%2 == 0 {
				env = Production
			}
			_, err := client.QueryNewDocuments(context.Background(), testIdentity(), env, NSU("1"), Credential{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, stub.calls())
}
