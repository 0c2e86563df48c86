package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfe-dfe/internal/adapter/api/dto"
	"github.com/hugohenrick/nfe-dfe/internal/domain/branch"
	"github.com/hugohenrick/nfe-dfe/internal/domain/certificate"
	domain "github.com/hugohenrick/nfe-dfe/internal/domain/dfe"
	dfeservice "github.com/hugohenrick/nfe-dfe/internal/service/dfe"
	nfe "github.com/hugohenrick/nfe-dfe/pkg/dfe"
	"github.com/hugohenrick/nfe-dfe/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "35240112345678000195550010000012341000012345"

type fakeService struct {
	partner dfeservice.Partner
	kind    nfe.ManifestationKind
	limit   int
	offset  int
	err     error
}

func (f *fakeService) SyncBranch(ctx context.Context, p dfeservice.Partner) (*dfeservice.SyncSummary, error) {
	f.partner = p
	if f.err != nil {
		return nil, f.err
	}
	return &dfeservice.SyncSummary{BranchID: p.BranchID, Environment: p.Environment, LastNSU: "42", MaxNSU: "42", Pages: 1, Documents: 3, InSync: true}, nil
}

func (f *fakeService) FetchByAccessKey(ctx context.Context, p dfeservice.Partner, key nfe.AccessKey) (*nfe.DistributionResult, []*domain.ReceivedDocument, error) {
	f.partner = p
	if f.err != nil {
		return nil, nil, f.err
	}
	doc := &domain.ReceivedDocument{ID: "d1", NSU: "000000000000077", Kind: nfe.KindInvoice, AccessKey: string(key)}
	return &nfe.DistributionResult{Status: nfe.StatusDocumentsFound, Message: "Documento localizado"}, []*domain.ReceivedDocument{doc}, nil
}

func (f *fakeService) Manifest(ctx context.Context, p dfeservice.Partner, key nfe.AccessKey, kind nfe.ManifestationKind, justification string) (*domain.Manifestation, error) {
	f.partner = p
	f.kind = kind
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Manifestation{ID: "m1", AccessKey: string(key), Kind: kind, Status: nfe.StatusBatchProcessed, EventStatus: nfe.StatusEventRegistered, Protocol: "891240000012345"}, nil
}

func (f *fakeService) State(ctx context.Context, tenantID, branchID string, env nfe.Environment) (*domain.SyncState, error) {
	f.partner = dfeservice.Partner{TenantID: tenantID, BranchID: branchID, Environment: env}
	if f.err != nil {
		return nil, f.err
	}
	state := domain.NewSyncState(tenantID, branchID, "12345678000195", env)
	state.LastNSU = "000000000000042"
	return state, nil
}

func (f *fakeService) Documents(ctx context.Context, tenantID, branchID string, env nfe.Environment, limit, offset int) ([]*domain.ReceivedDocument, int, error) {
	f.partner = dfeservice.Partner{TenantID: tenantID, BranchID: branchID, Environment: env}
	f.limit, f.offset = limit, offset
	if f.err != nil {
		return nil, 0, f.err
	}
	return []*domain.ReceivedDocument{{ID: "d1", NSU: "000000000000042", Kind: nfe.KindSummary}}, 25, nil
}

func (f *fakeService) Document(ctx context.Context, tenantID, branchID string, key nfe.AccessKey) (*domain.ReceivedDocument, []*domain.Manifestation, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	doc := &domain.ReceivedDocument{ID: "d1", AccessKey: string(key), Content: "<nfeProc/>", ReceivedAt: time.Now()}
	return doc, []*domain.Manifestation{{ID: "m1", Kind: nfe.Awareness, EventStatus: nfe.StatusEventRegistered}}, nil
}

type fakeBranches struct {
	branches map[string]*branch.Branch
}

func (f *fakeBranches) FindByTenantAndID(ctx context.Context, tenantID, id string) (*branch.Branch, error) {
	b, ok := f.branches[id]
	if !ok || b.TenantID != tenantID {
		return nil, branch.ErrBranchNotFound
	}
	return b, nil
}

func newTestRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	branches := &fakeBranches{branches: map[string]*branch.Branch{
		"b1": {ID: "b1", TenantID: "t1", Document: "12.345.678/0001-95", State: "sp", Status: branch.StatusActive},
		"b2": {ID: "b2", TenantID: "t1", Document: "12345678000195", State: "MG", Status: branch.StatusInactive},
	}}
	c := NewDFeController(svc, branches, nfe.Homologation, logger.NewNopLogger())

	router := gin.New()
	router.Use(func(ctx *gin.Context) {
		ctx.Set("tenant_id", "t1")
		ctx.Set("branch_id", "b1")
		ctx.Next()
	})
	group := router.Group("/dfe")
	group.POST("/sync", c.Sync)
	group.GET("/state", c.GetState)
	group.GET("/documents", c.ListDocuments)
	group.GET("/documents/:key", c.GetDocument)
	group.POST("/documents/:key/fetch", c.FetchDocument)
	group.POST("/documents/:key/manifestation", c.Manifest)
	return router
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDFeController_SyncUsesBranchRecord(t *testing.T) {
	svc := &fakeService{}
	w := perform(newTestRouter(svc), http.MethodPost, "/dfe/sync", `{"environment":"producao"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, dfeservice.Partner{TenantID: "t1", BranchID: "b1", TaxID: "12.345.678/0001-95", State: "SP", Environment: nfe.Production}, svc.partner)

	var summary dfeservice.SyncSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, summary.InSync)
	assert.Equal(t, 3, summary.Documents)
}

func TestDFeController_SyncExplicitIdentity(t *testing.T) {
	svc := &fakeService{}
	w := perform(newTestRouter(svc), http.MethodPost, "/dfe/sync", `{"branch_id":"b9","tax_id":"12345678909","state":"RJ"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b9", svc.partner.BranchID)
	assert.Equal(t, "12345678909", svc.partner.TaxID)
	assert.Equal(t, nfe.Homologation, svc.partner.Environment)
}

func TestDFeController_SyncBranchErrors(t *testing.T) {
	router := newTestRouter(&fakeService{})

	w := perform(router, http.MethodPost, "/dfe/sync", `{"branch_id":"b2"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = perform(router, http.MethodPost, "/dfe/sync", `{"branch_id":"nao-existe"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(router, http.MethodPost, "/dfe/sync", `{"environment":"staging"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDFeController_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &nfe.ValidationError{Field: "taxId", Reason: "inválido"}, http.StatusBadRequest},
		{"in progress", dfeservice.ErrSyncInProgress, http.StatusConflict},
		{"no certificate", certificate.ErrCertificateNotFound, http.StatusUnprocessableEntity},
		{"credential", &nfe.TransportError{Endpoint: "https://hom", Cause: &nfe.CredentialError{Cause: errors.New("pem")}}, http.StatusUnprocessableEntity},
		{"transport", &nfe.TransportError{Endpoint: "https://hom", StatusCode: 500}, http.StatusBadGateway},
		{"timeout", &nfe.TransportError{Endpoint: "https://hom", Cause: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"parse", &nfe.ParseError{Reason: "cStat ausente"}, http.StatusBadGateway},
		{"regression", domain.ErrCursorRegression, http.StatusBadGateway},
		{"other", errors.New("conexão perdida"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(newTestRouter(&fakeService{err: tt.err}), http.MethodPost, "/dfe/sync", `{}`)
			assert.Equal(t, tt.want, w.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Code)
		})
	}
}

func TestDFeController_ListDocuments(t *testing.T) {
	svc := &fakeService{}
	w := perform(newTestRouter(svc), http.MethodGet, "/dfe/documents?page=2&page_size=10&environment=1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, svc.limit)
	assert.Equal(t, 10, svc.offset)
	assert.Equal(t, nfe.Production, svc.partner.Environment)

	var resp dto.DocumentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 25, resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "42", resp.Documents[0].NSU)
}

func TestDFeController_GetDocument(t *testing.T) {
	router := newTestRouter(&fakeService{})

	w := perform(router, http.MethodGet, "/dfe/documents/"+testKey, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.DocumentDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "<nfeProc/>", resp.Document.XML)
	require.Len(t, resp.Manifestations, 1)
	assert.True(t, resp.Manifestations[0].Registered)

	w = perform(router, http.MethodGet, "/dfe/documents/123", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(newTestRouter(&fakeService{err: domain.ErrDocumentNotFound}), http.MethodGet, "/dfe/documents/"+testKey, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDFeController_FetchDocument(t *testing.T) {
	svc := &fakeService{}
	w := perform(newTestRouter(svc), http.MethodPost, "/dfe/documents/"+testKey+"/fetch", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "b1", svc.partner.BranchID)

	var resp dto.FetchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "138", resp.Status)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, testKey, resp.Documents[0].AccessKey)
}

func TestDFeController_Manifest(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	w := perform(router, http.MethodPost, "/dfe/documents/"+testKey+"/manifestation", `{"kind":"confirmacao"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, nfe.Confirmation, svc.kind)

	var resp dto.ManifestationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Registered)
	assert.Equal(t, "891240000012345", resp.Protocol)

	w = perform(router, http.MethodPost, "/dfe/documents/"+testKey+"/manifestation", `{"kind":"210999"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodPost, "/dfe/documents/"+testKey+"/manifestation", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDFeController_GetState(t *testing.T) {
	svc := &fakeService{}
	w := perform(newTestRouter(svc), http.MethodGet, "/dfe/state?branch_id=b7", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b7", svc.partner.BranchID)

	var resp dto.SyncStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.LastNSU)
	assert.Equal(t, "homologation", resp.Environment)

	w = perform(newTestRouter(&fakeService{err: domain.ErrSyncStateNotFound}), http.MethodGet, "/dfe/state", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
