// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the promptdb boundary as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/ingest"
	"github.com/starford/promptdb/internal/models"
	"github.com/starford/promptdb/internal/parser"
)

const proofFormatURI = "promptdb://proof-format"

// Server wraps the MCP server with promptdb tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *ingest.Service
	logger *slog.Logger
}

// New creates an MCP server with every tool registered.
func New(svc *ingest.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		"promptdb",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("verify_proof",
		mcp.WithDescription("Verify a hex-encoded proof blob and return its PROMPT scores."),
		mcp.WithString("proof", mcp.Required(), mcp.Description("Proof blob as hex (max 64 KiB decoded)")),
	), s.verifyProof)

	s.mcp.AddTool(mcp.NewTool("get_scores",
		mcp.WithDescription("Read the PROMPT scores of a hex-encoded proof without committing anything."),
		mcp.WithString("proof", mcp.Required(), mcp.Description("Proof blob as hex")),
	), s.getScores)

	s.mcp.AddTool(mcp.NewTool("fetch_proof_scores",
		mcp.WithDescription("Fetch a proof blob from a base64 data: URI or an http(s) URL and return its scores."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:application/octet-stream;base64,... or https://...")),
	), s.fetchProofScores)

	s.mcp.AddTool(mcp.NewTool("insert_value",
		mcp.WithDescription("Insert a value with provenance and proof. "+
			"Read the ingest contract first via get_ingest_contract or the "+proofFormatURI+" resource."),
		mcp.WithString("table", mcp.Required(), mcp.Description("Target table")),
		mcp.WithString("column", mcp.Required(), mcp.Description("Target column")),
		mcp.WithString("payload", mcp.Description("Value to store")),
		mcp.WithString("proof", mcp.Required(), mcp.Description("Proof blob as hex")),
		mcp.WithString("actor", mcp.Required(), mcp.Description("Who is inserting the value")),
		mcp.WithString("timestamp", mcp.Required(), mcp.Description("Milliseconds since epoch or RFC 3339")),
		mcp.WithString("rationale", mcp.Required(), mcp.Description("Why the value is being inserted")),
	), s.insertValue)

	s.mcp.AddTool(mcp.NewTool("table_count",
		mcp.WithDescription("Row count of a table; 0 when the table is unknown."),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
	), s.tableCount)

	s.mcp.AddTool(mcp.NewTool("delete_row",
		mcp.WithDescription("Delete a row, decrementing the table's row count."),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
		mcp.WithNumber("row_id", mcp.Required(), mcp.Description("Row id (>= 1); ids above 2^53 may be sent as a decimal string")),
	), s.deleteRow)

	s.mcp.AddTool(mcp.NewTool("compute_overall",
		mcp.WithDescription("Floor average of six dimension values, each in [0,100]."),
		mcp.WithArray("values", mcp.Required(),
			mcp.Description("provenance, replicability, objective, methodology, publication, transparency"),
			mcp.Items(map[string]any{"type": "integer"})),
	), s.computeOverall)

	s.mcp.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List registry tables with row counts and quality tiers."),
	), s.listTables)

	s.mcp.AddTool(mcp.NewTool("search_rationales",
		mcp.WithDescription("Search committed rows by rationale or actor."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchRationales)

	s.mcp.AddTool(mcp.NewTool("last_error",
		mcp.WithDescription("Message of the most recent failing call. Read it right after the failure."),
	), s.lastError)

	s.mcp.AddTool(mcp.NewTool("get_ingest_contract",
		mcp.WithDescription("Returns the proof format and insert contract. Call this before inserting."),
	), s.getIngestContract)

	s.mcp.AddResource(
		mcp.NewResource(proofFormatURI, "Proof Format Contract",
			mcp.WithResourceDescription("Proof blob layouts, score semantics and status codes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readProofFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// jsonResult renders v as indented JSON. Non-ok statuses are flagged as
// tool errors so clients branch on them.
func jsonResult(v any, st apperr.Status) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	res := mcp.NewToolResultText(string(out))
	res.IsError = !st.OK()
	return res
}

type statusResult struct {
	Status  apperr.Status `json:"status"`
	Code    int           `json:"code"`
	Message string        `json:"message,omitempty"`
	RowID   uint64        `json:"row_id,omitempty"`
	Overall *int64        `json:"overall,omitempty"`
}

func (s *Server) statusResult(st apperr.Status) statusResult {
	r := statusResult{Status: st, Code: int(st)}
	if !st.OK() {
		r.Message = s.svc.LastError()
	}
	return r
}

func proofResult(res models.ProofResult) *mcp.CallToolResult {
	return jsonResult(struct {
		models.ProofResult
		Code int `json:"code"`
	}{res, int(res.Status)}, res.Status)
}

func (s *Server) proofArg(req mcp.CallToolRequest) ([]byte, *mcp.CallToolResult) {
	raw, err := req.RequireString("proof")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	blob, err := parser.DecodeProof(raw)
	if err != nil {
		st := apperr.StatusOf(err)
		return nil, jsonResult(statusResult{Status: st, Code: int(st), Message: err.Error()}, st)
	}
	return blob, nil
}

func (s *Server) verifyProof(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blob, errRes := s.proofArg(req)
	if errRes != nil {
		return errRes, nil
	}
	return proofResult(s.svc.VerifyProof(blob)), nil
}

func (s *Server) getScores(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blob, errRes := s.proofArg(req)
	if errRes != nil {
		return errRes, nil
	}
	return proofResult(s.svc.GetScores(blob)), nil
}

func (s *Server) insertValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column, err := req.RequireString("column")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := models.InsertRequest{
		Table:     table,
		Column:    column,
		Payload:   []byte(req.GetString("payload", "")),
		Actor:     req.GetString("actor", ""),
		Rationale: req.GetString("rationale", ""),
	}
	if in.Timestamp, err = timestampArg(req); err != nil {
		in.DecodeErr = err
	} else if in.Proof, err = parser.DecodeProof(req.GetString("proof", "")); err != nil {
		in.DecodeErr = err
	}

	res := s.svc.Insert(ctx, in)
	return jsonResult(statusResult{
		Status: res.Status, Code: int(res.Status), Message: res.Message, RowID: res.RowID,
	}, res.Status), nil
}

// timestampArg accepts a string (ms or RFC 3339) or a JSON number. Numbers
// past 2^53 have already lost precision and are refused.
func timestampArg(req mcp.CallToolRequest) (int64, error) {
	switch v := req.GetArguments()["timestamp"].(type) {
	case string:
		return parser.ParseTimestamp(v)
	case float64:
		if math.Abs(v) > maxExactFloat {
			return 0, fmt.Errorf("timestamp: %g is not exact as a number, pass it as a string: %w", v, apperr.ErrInvalidTimestamp)
		}
		return parser.ParseTimestamp(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return 0, fmt.Errorf("timestamp: missing: %w", apperr.ErrInvalidTimestamp)
	}
}

// maxExactFloat is the largest float64 below which every integer is exact.
const maxExactFloat = 1 << 53

// rowIDArg reads row_id as a decimal string or an integral JSON number.
func rowIDArg(req mcp.CallToolRequest) (uint64, error) {
	switch v := req.GetArguments()["row_id"].(type) {
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return 0, errors.New("row_id must be a positive integer")
		}
		return id, nil
	case float64:
		if v < 1 || v != math.Trunc(v) || v > maxExactFloat {
			return 0, errors.New("row_id must be a positive integer below 2^53, pass larger ids as a string")
		}
		return uint64(v), nil
	default:
		return 0, errors.New("required argument \"row_id\" not found")
	}
}

func (s *Server) tableCount(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"table": table, "count": s.svc.TableCount(table)}, apperr.StatusOK), nil
}

func (s *Server) deleteRow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := rowIDArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st := s.svc.DeleteRow(ctx, table, id)
	return jsonResult(s.statusResult(st), st), nil
}

func (s *Server) computeOverall(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["values"].([]any)
	if !ok || len(raw) != 6 {
		return mcp.NewToolResultError("values must be an array of exactly six integers"), nil
	}
	var values [6]int64
	for i, v := range raw {
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= 1<<63 {
			return mcp.NewToolResultError(fmt.Sprintf("values[%d] is not an integer", i)), nil
		}
		values[i] = int64(f)
	}

	overall, st := s.svc.ComputeOverall(values)
	r := s.statusResult(st)
	if st.OK() {
		r.Overall = &overall
	}
	return jsonResult(r, st), nil
}

func (s *Server) listTables(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Tables(ctx), apperr.StatusOK), nil
}

func (s *Server) searchRationales(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results, apperr.StatusOK), nil
}

func (s *Server) lastError(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg := s.svc.LastError()
	if msg == "" {
		return mcp.NewToolResultText("no error recorded"), nil
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) getIngestContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ProofFormatContract), nil
}

func (s *Server) readProofFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      proofFormatURI,
			MIMEType: "text/markdown",
			Text:     ProofFormatContract,
		},
	}, nil
}
