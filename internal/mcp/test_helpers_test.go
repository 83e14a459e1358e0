package mcp

import (
	"context"
	"encoding/json"
	"time"

	"signal-relay/internal/domain"
	"signal-relay/internal/service"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubSignalAccess struct {
	active  []domain.Signal
	history []domain.Signal
	byID    map[string]domain.Signal
	stats   domain.SignalStats

	lastFilter     domain.HistoryFilter
	lastTimeframe  domain.Timeframe
	lastUpdateID   string
	lastUpdateIn   service.UpdateInput
	updateErr      error
	updatedSignals []domain.Signal
}

func (s *stubSignalAccess) ListActive(ctx context.Context) ([]domain.Signal, error) {
	return append([]domain.Signal(nil), s.active...), nil
}

func (s *stubSignalAccess) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.Signal, error) {
	s.lastFilter = filter
	return append([]domain.Signal(nil), s.history...), nil
}

func (s *stubSignalAccess) GetByID(ctx context.Context, id string) (*domain.Signal, error) {
	if sig, ok := s.byID[id]; ok {
		copy := sig
		return &copy, nil
	}
	return nil, domain.ErrSignalNotFound
}

func (s *stubSignalAccess) Stats(ctx context.Context, timeframe domain.Timeframe) (*domain.SignalStats, error) {
	s.lastTimeframe = timeframe
	stats := s.stats
	return &stats, nil
}

func (s *stubSignalAccess) UpdateStatus(ctx context.Context, id string, input service.UpdateInput) (*domain.Signal, error) {
	s.lastUpdateID = id
	s.lastUpdateIn = input
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	sig, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrSignalNotFound
	}
	if input.Status != nil {
		sig.Status = domain.SignalStatus(*input.Status)
	}
	sig.ClosePrice = input.ClosePrice
	s.updatedSignals = append(s.updatedSignals, sig)
	return &sig, nil
}

func testServer() (*sdkmcp.Server, *stubSignalAccess) {
	active := domain.Signal{
		ID:         "sig-active-1",
		Pair:       "EURUSD",
		Action:     domain.ActionLong,
		Entry:      1.0850,
		StopLoss:   1.0800,
		TakeProfit: 1.0950,
		Source:     domain.DefaultSource,
		Status:     domain.StatusActive,
		CreatedAt:  time.Unix(0, 0).UTC(),
	}
	closed := active
	closed.ID = "sig-closed-1"
	closed.Status = domain.StatusClosedWin

	access := &stubSignalAccess{
		active:  []domain.Signal{active},
		history: []domain.Signal{closed, active},
		byID: map[string]domain.Signal{
			active.ID: active,
			closed.ID: closed,
		},
		stats: domain.SignalStats{TotalSignals: 3, ActiveSignals: 1, WinningSignals: 2, LosingSignals: 1, WinRate: 66.67},
	}

	srv := NewServer(nil, access, access, ServerConfig{RequestTimeout: time.Second})
	return srv, access
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}
