package mcp

import (
	"context"
	"testing"
	"time"

	"signal-relay/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestToolsListAndInvoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, access := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	tools, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("list tools failed: %v", err)
	}
	if len(tools.Tools) < 5 {
		t.Fatalf("expected at least 5 tools, got %d", len(tools.Tools))
	}

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "signals_list_active", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("call tool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "signals_history",
		Arguments: map[string]any{"status": "closed_win", "pair": "eurusd", "limit": 500},
	})
	if err != nil {
		t.Fatalf("history tool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected history tool error: %+v", res.Content)
	}
	if access.lastFilter.Status != domain.StatusClosedWin {
		t.Fatalf("expected status filter CLOSED_WIN, got %q", access.lastFilter.Status)
	}
	if access.lastFilter.Pair != "EURUSD" {
		t.Fatalf("expected uppercased pair filter, got %q", access.lastFilter.Pair)
	}
	if access.lastFilter.Limit != maxHistoryLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxHistoryLimit, access.lastFilter.Limit)
	}
}

func TestCloseSignalTool(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, access := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "close_signal",
		Arguments: map[string]any{"id": "sig-active-1", "status": "CLOSED_WIN", "close_price": 1.0920},
	})
	if err != nil {
		t.Fatalf("close tool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected close tool error: %+v", res.Content)
	}
	if access.lastUpdateID != "sig-active-1" {
		t.Fatalf("expected update for sig-active-1, got %q", access.lastUpdateID)
	}
	if access.lastUpdateIn.Status == nil || *access.lastUpdateIn.Status != string(domain.StatusClosedWin) {
		t.Fatalf("expected CLOSED_WIN status, got %+v", access.lastUpdateIn.Status)
	}
	if access.lastUpdateIn.ClosePrice == nil || *access.lastUpdateIn.ClosePrice != 1.0920 {
		t.Fatalf("expected close price 1.0920, got %+v", access.lastUpdateIn.ClosePrice)
	}
}

func TestCloseSignalRejectsNonTerminalStatus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, access := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "close_signal",
		Arguments: map[string]any{"id": "sig-active-1", "status": "ACTIVE"},
	})
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool-level validation error")
	}
	if access.lastUpdateID != "" {
		t.Fatal("expected no update call for a non-terminal status")
	}
}

func TestToolsValidationFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "signals_history",
		Arguments: map[string]any{"action": "HOLD"},
	})
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool-level validation error")
	}
}
