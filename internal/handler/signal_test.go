package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signal-relay/internal/domain"
	"signal-relay/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

const testIngestKey = "test-ingest-key"

type handlerStubRepo struct {
	created    *domain.Signal
	createErr  error
	getResp    *domain.Signal
	getErr     error
	active     []domain.Signal
	history    []domain.Signal
	lastFilter domain.HistoryFilter
	updated    *domain.Signal
	updateErr  error
	deleted    bool
	stats      *domain.SignalStats
}

func (r *handlerStubRepo) Create(ctx context.Context, s domain.Signal) (*domain.Signal, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	s.ID = "sig-stored"
	s.CreatedAt = time.Unix(1700000000, 0).UTC()
	r.created = &s
	return &s, nil
}

func (r *handlerStubRepo) GetByID(ctx context.Context, id string) (*domain.Signal, error) {
	return r.getResp, r.getErr
}

func (r *handlerStubRepo) ListActive(ctx context.Context) ([]domain.Signal, error) {
	return r.active, nil
}

func (r *handlerStubRepo) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.Signal, error) {
	r.lastFilter = filter
	return r.history, nil
}

func (r *handlerStubRepo) UpdateLifecycle(ctx context.Context, id string, patch domain.LifecyclePatch) (*domain.Signal, error) {
	return r.updated, r.updateErr
}

func (r *handlerStubRepo) Delete(ctx context.Context, id string) (bool, error) {
	return r.deleted, nil
}

func (r *handlerStubRepo) Stats(ctx context.Context, tf domain.Timeframe) (*domain.SignalStats, error) {
	return r.stats, nil
}

type handlerStubPublisher struct {
	kinds []string
}

func (p *handlerStubPublisher) Publish(kind string, signal domain.Signal) {
	p.kinds = append(p.kinds, kind)
}

func newTestRouter(repo *handlerStubRepo, pub *handlerStubPublisher, key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tracer := trace.NewNoopTracerProvider().Tracer("handler-test")

	var publisher service.SignalPublisher
	if pub != nil {
		publisher = pub
	}
	svc := service.NewSignalService(tracer, repo, publisher, nil, 10000)
	h := New(tracer, svc, nil, key)

	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func doJSON(router *gin.Engine, method, path, body, bearer string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validIngestBody = `{"pair":"EURUSD","action":"long","entry":1.0850,"stopLoss":1.0800,"takeProfit":1.0950,"confidence":80,"reasoning":"breakout"}`

func TestIngestSignalSuccess(t *testing.T) {
	repo := &handlerStubRepo{}
	pub := &handlerStubPublisher{}
	router := newTestRouter(repo, pub, testIngestKey)

	w := doJSON(router, http.MethodPost, "/api/signals/ingest", validIngestBody, testIngestKey)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		SignalID string        `json:"signalId"`
		Signal   domain.Signal `json:"signal"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if resp.SignalID != "sig-stored" || resp.Signal.Pair != "EURUSD" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Signal.Status != domain.StatusActive {
		t.Fatalf("expected ACTIVE status, got %s", resp.Signal.Status)
	}
	if len(pub.kinds) != 1 {
		t.Fatalf("expected one broadcast, got %v", pub.kinds)
	}
}

func TestIngestSignalRejectsInvalidDirection(t *testing.T) {
	repo := &handlerStubRepo{}
	router := newTestRouter(repo, nil, testIngestKey)

	body := strings.Replace(validIngestBody, `"long"`, `"HOLD"`, 1)
	w := doJSON(router, http.MethodPost, "/api/signals/ingest", body, testIngestKey)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if repo.created != nil {
		t.Fatal("rejected payload must not create a row")
	}
}

func TestIngestSignalRejectsNonNumericPrice(t *testing.T) {
	router := newTestRouter(&handlerStubRepo{}, nil, testIngestKey)

	body := strings.Replace(validIngestBody, `1.0850`, `"one point one"`, 1)
	w := doJSON(router, http.MethodPost, "/api/signals/ingest", body, testIngestKey)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIngestSignalFailsClosedWithoutKey(t *testing.T) {
	repo := &handlerStubRepo{}
	router := newTestRouter(repo, nil, "")

	w := doJSON(router, http.MethodPost, "/api/signals/ingest", validIngestBody, "anything")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with unconfigured key, got %d", w.Code)
	}
	if repo.created != nil {
		t.Fatal("fail-closed endpoint must never persist")
	}
}

func TestIngestSignalAuthMatrix(t *testing.T) {
	router := newTestRouter(&handlerStubRepo{}, nil, testIngestKey)

	w := doJSON(router, http.MethodPost, "/api/signals/ingest", validIngestBody, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing credential: expected 401, got %d", w.Code)
	}

	w = doJSON(router, http.MethodPost, "/api/signals/ingest", validIngestBody, "wrong-key")
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong credential: expected 403, got %d", w.Code)
	}
}

func TestIngestSignalStorageError(t *testing.T) {
	repo := &handlerStubRepo{createErr: context.DeadlineExceeded}
	pub := &handlerStubPublisher{}
	router := newTestRouter(repo, pub, testIngestKey)

	w := doJSON(router, http.MethodPost, "/api/signals/ingest", validIngestBody, testIngestKey)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "deadline") {
		t.Fatal("internal detail leaked to the caller")
	}
	if len(pub.kinds) != 0 {
		t.Fatal("failed write must not broadcast")
	}
}

func TestGetActiveSignals(t *testing.T) {
	repo := &handlerStubRepo{active: []domain.Signal{
		{ID: "sig-2", Pair: "EURUSD", Status: domain.StatusActive},
		{ID: "sig-1", Pair: "GBPJPY", Status: domain.StatusActive},
	}}
	router := newTestRouter(repo, nil, testIngestKey)

	first := doJSON(router, http.MethodGet, "/api/signals/active", "", "")
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}

	// Idempotent read: same result set, same order.
	second := doJSON(router, http.MethodGet, "/api/signals/active", "", "")
	if first.Body.String() != second.Body.String() {
		t.Fatal("repeated reads must return identical results")
	}

	var resp struct {
		Count   int             `json:"count"`
		Signals []domain.Signal `json:"signals"`
	}
	if err := json.Unmarshal(first.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if resp.Count != 2 || resp.Signals[0].ID != "sig-2" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestGetSignalByID(t *testing.T) {
	repo := &handlerStubRepo{getResp: &domain.Signal{ID: "sig-1", Pair: "EURUSD"}}
	router := newTestRouter(repo, nil, testIngestKey)

	w := doJSON(router, http.MethodGet, "/api/signals/sig-1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetSignalByIDNotFound(t *testing.T) {
	repo := &handlerStubRepo{getErr: domain.ErrSignalNotFound}
	router := newTestRouter(repo, nil, testIngestKey)

	w := doJSON(router, http.MethodGet, "/api/signals/missing", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetSignalHistoryPassesFilters(t *testing.T) {
	repo := &handlerStubRepo{}
	router := newTestRouter(repo, nil, testIngestKey)

	w := doJSON(router, http.MethodGet, "/api/signals/history?limit=2&offset=2&status=closed_win&pair=eurusd&action=short", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	f := repo.lastFilter
	if f.Limit != 2 || f.Offset != 2 || f.Status != domain.StatusClosedWin || f.Pair != "EURUSD" || f.Action != domain.ActionShort {
		t.Fatalf("unexpected filter: %+v", f)
	}
}

func TestGetSignalHistoryEchoesAppliedLimit(t *testing.T) {
	repo := &handlerStubRepo{}
	router := newTestRouter(repo, nil, testIngestKey)

	// No limit requested: the default page size is what was queried.
	w := doJSON(router, http.MethodGet, "/api/signals/history", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var page struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if page.Limit != 50 {
		t.Fatalf("expected default limit 50 in response, got %d", page.Limit)
	}
	if repo.lastFilter.Limit != 50 {
		t.Fatalf("expected default limit 50 in query, got %d", repo.lastFilter.Limit)
	}

	// Oversized limit: the response reflects the clamped value, not the request.
	w = doJSON(router, http.MethodGet, "/api/signals/history?limit=99999", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if page.Limit != 10000 {
		t.Fatalf("expected clamped limit 10000 in response, got %d", page.Limit)
	}
	if repo.lastFilter.Limit != 10000 {
		t.Fatalf("expected clamped limit 10000 in query, got %d", repo.lastFilter.Limit)
	}
}

func TestGetSignalHistoryRejectsBadParams(t *testing.T) {
	router := newTestRouter(&handlerStubRepo{}, nil, testIngestKey)

	for _, q := range []string{"limit=0", "limit=abc", "offset=-1", "status=OPEN", "action=HOLD"} {
		w := doJSON(router, http.MethodGet, "/api/signals/history?"+q, "", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", q, w.Code)
		}
	}
}

func TestUpdateSignalStatus(t *testing.T) {
	closePrice := 1.0920
	profit := 0.007
	repo := &handlerStubRepo{updated: &domain.Signal{
		ID:         "sig-1",
		Status:     domain.StatusClosedWin,
		ClosePrice: &closePrice,
		Profit:     &profit,
	}}
	pub := &handlerStubPublisher{}
	router := newTestRouter(repo, pub, testIngestKey)

	w := doJSON(router, http.MethodPatch, "/api/signals/sig-1/status",
		`{"status":"CLOSED_WIN","closePrice":1.0920}`, testIngestKey)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(pub.kinds) != 1 {
		t.Fatalf("expected one update broadcast, got %v", pub.kinds)
	}
}

func TestUpdateSignalStatusRejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(&handlerStubRepo{}, nil, testIngestKey)

	w := doJSON(router, http.MethodPatch, "/api/signals/sig-1/status", `{"status":"REOPENED"}`, testIngestKey)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdateSignalStatusNotFound(t *testing.T) {
	repo := &handlerStubRepo{updateErr: domain.ErrSignalNotFound}
	router := newTestRouter(repo, nil, testIngestKey)

	w := doJSON(router, http.MethodPatch, "/api/signals/missing/status", `{"status":"CANCELLED"}`, testIngestKey)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDeleteSignal(t *testing.T) {
	repo := &handlerStubRepo{deleted: true}
	router := newTestRouter(repo, nil, testIngestKey)

	w := doJSON(router, http.MethodDelete, "/api/signals/sig-1", "", testIngestKey)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	repo.deleted = false
	w = doJSON(router, http.MethodDelete, "/api/signals/missing", "", testIngestKey)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetSignalStats(t *testing.T) {
	repo := &handlerStubRepo{stats: &domain.SignalStats{
		TotalSignals:   3,
		WinningSignals: 2,
		LosingSignals:  1,
		WinRate:        66.67,
	}}
	router := newTestRouter(repo, nil, testIngestKey)

	w := doJSON(router, http.MethodGet, "/api/signals/stats/summary?timeframe=week", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Statistics domain.SignalStats `json:"statistics"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if resp.Statistics.WinRate != 66.67 {
		t.Fatalf("unexpected statistics: %+v", resp.Statistics)
	}
}

func TestGetSignalStatsRejectsBadTimeframe(t *testing.T) {
	router := newTestRouter(&handlerStubRepo{}, nil, testIngestKey)

	w := doJSON(router, http.MethodGet, "/api/signals/stats/summary?timeframe=year", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&handlerStubRepo{}, nil, testIngestKey)

	w := doJSON(router, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
