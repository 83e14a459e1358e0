package mcp

import (
	"context"
	"fmt"
	"strings"

	"signal-relay/internal/service"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, reader SignalReader, closer SignalCloser) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_list_active",
		Description: "Get all currently active trading signals",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ signalsListActiveInput) (*mcp.CallToolResult, signalsListActiveOutput, error) {
		if reader == nil {
			return nil, signalsListActiveOutput{}, fmt.Errorf("signal service unavailable")
		}
		list, err := reader.ListActive(ctx)
		if err != nil {
			return nil, signalsListActiveOutput{}, err
		}
		return nil, signalsListActiveOutput{Signals: list}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_get",
		Description: "Get a single signal by its identifier",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalsGetInput) (*mcp.CallToolResult, signalsGetOutput, error) {
		if reader == nil {
			return nil, signalsGetOutput{}, fmt.Errorf("signal service unavailable")
		}
		id := strings.TrimSpace(in.ID)
		if id == "" {
			return nil, signalsGetOutput{}, fmt.Errorf("id is required")
		}
		sig, err := reader.GetByID(ctx, id)
		if err != nil {
			return nil, signalsGetOutput{}, err
		}
		return nil, signalsGetOutput{Signal: sig}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_history",
		Description: "Get historical signals with optional status/pair/action filters and pagination",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalsHistoryInput) (*mcp.CallToolResult, signalsHistoryOutput, error) {
		if reader == nil {
			return nil, signalsHistoryOutput{}, fmt.Errorf("signal service unavailable")
		}
		filter, err := normalizeHistoryFilter(in)
		if err != nil {
			return nil, signalsHistoryOutput{}, err
		}
		list, err := reader.History(ctx, filter)
		if err != nil {
			return nil, signalsHistoryOutput{}, err
		}
		return nil, signalsHistoryOutput{Signals: list}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signals_stats",
		Description: "Get aggregate win/loss statistics, optionally scoped to a timeframe",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalsStatsInput) (*mcp.CallToolResult, signalsStatsOutput, error) {
		if reader == nil {
			return nil, signalsStatsOutput{}, fmt.Errorf("signal service unavailable")
		}
		timeframe, err := normalizeTimeframe(in.Timeframe)
		if err != nil {
			return nil, signalsStatsOutput{}, err
		}
		stats, err := reader.Stats(ctx, timeframe)
		if err != nil {
			return nil, signalsStatsOutput{}, err
		}
		return nil, signalsStatsOutput{Statistics: stats}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "close_signal",
		Description: "Close a signal with a terminal status and optional fill price",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in closeSignalInput) (*mcp.CallToolResult, closeSignalOutput, error) {
		if closer == nil {
			return nil, closeSignalOutput{}, fmt.Errorf("signal service unavailable")
		}
		id := strings.TrimSpace(in.ID)
		if id == "" {
			return nil, closeSignalOutput{}, fmt.Errorf("id is required")
		}
		status, err := normalizeCloseStatus(in.Status)
		if err != nil {
			return nil, closeSignalOutput{}, err
		}

		statusStr := string(status)
		updated, err := closer.UpdateStatus(ctx, id, service.UpdateInput{
			Status:     &statusStr,
			ClosePrice: in.ClosePrice,
		})
		if err != nil {
			return nil, closeSignalOutput{}, err
		}
		return nil, closeSignalOutput{Signal: updated}, nil
	})
}
