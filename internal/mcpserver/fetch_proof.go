package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/promptdb/internal/models"
	"github.com/starford/promptdb/internal/proof"
)

const maxFetchRedirects = 5

type fetchResult struct {
	FetchID string `json:"fetch_id"`
	Source  string `json:"source"`
	Bytes   int    `json:"bytes"`
	Code    int    `json:"code"`
	models.ProofResult
}

func (s *Server) fetchProofScores(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var data []byte
	source := "data"
	if strings.HasPrefix(rawURL, "data:") {
		data, err = decodeDataURI(rawURL)
	} else {
		data, err = fetchHTTP(ctx, rawURL)
		source = rawURL
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := uuid.NewString()
	res := s.svc.GetScores(data)
	s.logger.Info("mcp: proof fetched",
		slog.String("fetch_id", id),
		slog.String("source", source),
		slog.Int("bytes", len(data)),
		slog.String("status", res.Status.String()),
	)
	return jsonResult(fetchResult{
		FetchID:     id,
		Source:      source,
		Bytes:       len(data),
		Code:        int(res.Status),
		ProofResult: res,
	}, res.Status), nil
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI. The media
// type is not interpreted.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > proof.MaxBlobSize {
		return nil, fmt.Errorf("proof too large: %d bytes (max %d)", len(data), proof.MaxBlobSize)
	}
	return data, nil
}

// fetchHTTP downloads a proof blob from an HTTP/HTTPS URL.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxFetchRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxFetchRedirects)
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, proof.MaxBlobSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > proof.MaxBlobSize {
		return nil, fmt.Errorf("proof too large: exceeds %d bytes", proof.MaxBlobSize)
	}
	return data, nil
}

// checkBlockedHost rejects loopback, link-local and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("blocked host: loopback address %s", host)
	case ip.IsUnspecified():
		return fmt.Errorf("blocked host: unspecified address %s", host)
	case ip.IsLinkLocalUnicast():
		// Covers 169.254.169.254, the AWS/GCP/Azure metadata endpoint.
		return fmt.Errorf("blocked host: link-local address %s", host)
	}
	return nil
}
