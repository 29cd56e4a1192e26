package api

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/canon/pkg/kit"
)

// RegisterMCPTools registers the canon MCP tools on the server. They share
// endpoints, validation and logging with the HTTP routes.
func RegisterMCPTools(srv *server.MCPServer, d Deps) {
	eps := newEndpoints(d)
	registerCanonicalize(srv, eps)
	registerCanonicalizeBatch(srv, eps)
	registerListDomains(srv, eps)
}

func registerCanonicalize(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("canonicalize",
		mcp.WithDescription("Map a raw text value to its canonical category in one domain (municipality, party, jurisdiction, lawsuit_type, profession)."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain name, e.g. party")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Raw value to canonicalize")),
	)

	kit.RegisterMCPTool(srv, tool, eps.canonicalize, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		domain, _ := args["domain"].(string)
		value, _ := args["value"].(string)
		return &kit.MCPDecodeResult{
			Request:   &canonicalizeReq{Domain: domain, Value: value, Explain: true},
			EnrichCtx: withDomain(domain),
		}, nil
	})
}

func registerCanonicalizeBatch(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("canonicalize_batch",
		mcp.WithDescription("Canonicalize up to 100 raw values in one domain."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain name")),
		mcp.WithString("values", mcp.Required(), mcp.Description("Comma-separated list of raw values")),
	)

	kit.RegisterMCPTool(srv, tool, eps.batch, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		domain, _ := args["domain"].(string)
		var values []any
		if s, _ := args["values"].(string); s != "" {
			for _, v := range strings.Split(s, ",") {
				values = append(values, strings.TrimSpace(v))
			}
		}
		return &kit.MCPDecodeResult{
			Request:   &batchReq{Domain: domain, Values: values},
			EnrichCtx: withDomain(domain),
		}, nil
	})
}

func registerListDomains(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("list_domains",
		mcp.WithDescription("List the loaded canonicalization domains with their rule count and label set."),
	)

	kit.RegisterMCPTool(srv, tool, eps.listDomains, func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	})
}

func withDomain(domain string) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return kit.WithDomain(ctx, domain)
	}
}
