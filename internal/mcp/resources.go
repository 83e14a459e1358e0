package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, reader SignalReader) {
	server.AddResource(&mcp.Resource{
		URI:         "signals://active",
		Name:        "signals-active",
		Description: "All currently active trading signals",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if reader == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}
		list, err := reader.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, signalsListActiveOutput{Signals: list})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "signals://history{?status,pair,action,limit,offset}",
		Name:        "signals-history",
		Description: "Historical signals with optional status/pair/action/limit/offset query params",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if reader == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "signals" || parsed.Host != "history" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		input := signalsHistoryInput{
			Status: parsed.Query().Get("status"),
			Pair:   parsed.Query().Get("pair"),
			Action: parsed.Query().Get("action"),
			Limit:  defaultHistoryLimit,
		}
		if rawLimit := strings.TrimSpace(parsed.Query().Get("limit")); rawLimit != "" {
			n, err := strconv.Atoi(rawLimit)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", rawLimit)
			}
			input.Limit = n
		}
		if rawOffset := strings.TrimSpace(parsed.Query().Get("offset")); rawOffset != "" {
			n, err := strconv.Atoi(rawOffset)
			if err != nil {
				return nil, fmt.Errorf("invalid offset: %s", rawOffset)
			}
			input.Offset = n
		}

		filter, err := normalizeHistoryFilter(input)
		if err != nil {
			return nil, err
		}
		list, err := reader.History(ctx, filter)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, signalsHistoryOutput{Signals: list})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "signals://stats{?timeframe}",
		Name:        "signals-stats",
		Description: "Aggregate win/loss statistics with an optional timeframe query param",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if reader == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "signals" || parsed.Host != "stats" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		timeframe, err := normalizeTimeframe(parsed.Query().Get("timeframe"))
		if err != nil {
			return nil, err
		}
		stats, err := reader.Stats(ctx, timeframe)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, signalsStatsOutput{Statistics: stats})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
