package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/promptdb/internal/ingest"
	"github.com/starford/promptdb/internal/registry"
	"github.com/starford/promptdb/internal/sse"
	"github.com/starford/promptdb/internal/store"
	"github.com/starford/promptdb/internal/testutil"
)

const validRow = `{
	"table": "users",
	"column": "name",
	"payload": "Alice",
	"proof": "` + testutil.SampleProofHex + `",
	"actor": "u1",
	"timestamp": 1700000000000,
	"rationale": "initial import"
}`

// testEnv sets up a ledger-backed service and router. A non-empty token
// enables auth.
func testEnv(t *testing.T, authToken string, opts ...store.Option) (*ingest.Service, http.Handler) {
	t.Helper()
	led := testutil.TestLedger(t)
	svc := ingest.NewService(testutil.TestStore(t, led, opts...), led, nil, testutil.QuietLogger())
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestInsertRow_Success(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/rows", validRow)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp InsertRowResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" || resp.Code != 0 || resp.RowID != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}

	w = do(t, router, http.MethodPost, "/rows", validRow)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.RowID != 2 {
		t.Errorf("second row id = %d, want 2", resp.RowID)
	}
}

func TestInsertRow_StatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		from, to string
		wantHTTP int
		wantCode int
	}{
		{"empty actor", `"actor": "u1"`, `"actor": ""`, http.StatusBadRequest, 4},
		{"empty rationale", `"rationale": "initial import"`, `"rationale": ""`, http.StatusBadRequest, 5},
		{"empty table", `"table": "users"`, `"table": ""`, http.StatusBadRequest, 3},
		{"empty proof", `"proof": "` + testutil.SampleProofHex + `"`, `"proof": ""`, http.StatusUnprocessableEntity, 1},
		{"bad hex", `"proof": "` + testutil.SampleProofHex + `"`, `"proof": "xyz"`, http.StatusUnprocessableEntity, 1},
		{"rfc3339 timestamp", `1700000000000`, `"2023-11-14T22:13:20Z"`, http.StatusCreated, 0},
		{"bad timestamp", `1700000000000`, `"tomorrow"`, http.StatusBadRequest, 6},
		{"missing timestamp", `1700000000000`, `null`, http.StatusBadRequest, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, router := testEnv(t, "")
			w := do(t, router, http.MethodPost, "/rows", strings.Replace(validRow, tc.from, tc.to, 1))
			if w.Code != tc.wantHTTP {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tc.wantHTTP, w.Body.String())
			}
			var resp InsertRowResponse
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", resp.Code, tc.wantCode)
			}
		})
	}
}

func TestInsertRow_FieldChecksPrecedeDecodeErrors(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantHTTP int
		wantCode int
	}{
		{"empty table without timestamp", `{"table":"","column":"name","proof":"a6","actor":"u1","rationale":"r"}`, http.StatusBadRequest, 3},
		{"empty column with bad hex", `{"table":"users","column":"","proof":"zz","actor":"u1","timestamp":1,"rationale":"r"}`, http.StatusBadRequest, 3},
		{"empty actor with bad hex", `{"table":"users","column":"name","proof":"zz","actor":"","timestamp":1,"rationale":"r"}`, http.StatusBadRequest, 4},
		{"empty rationale with bad timestamp", `{"table":"users","column":"name","proof":"a6","actor":"u1","timestamp":"later","rationale":""}`, http.StatusBadRequest, 5},
		{"bad timestamp before bad hex", `{"table":"users","column":"name","proof":"zz","actor":"u1","timestamp":"later","rationale":"r"}`, http.StatusBadRequest, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, router := testEnv(t, "")
			w := do(t, router, http.MethodPost, "/rows", tc.body)
			if w.Code != tc.wantHTTP {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tc.wantHTTP, w.Body.String())
			}
			var resp InsertRowResponse
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", resp.Code, tc.wantCode)
			}
			if svc.LastError() == "" {
				t.Error("rejected insert should set the last error")
			}
		})
	}
}

func TestInsertRow_RegistryFull(t *testing.T) {
	_, router := testEnv(t, "", store.WithRegistryOptions(registry.WithMaxTables(1)))
	do(t, router, http.MethodPost, "/rows", validRow)

	w := do(t, router, http.MethodPost, "/rows", strings.Replace(validRow, `"users"`, `"orders"`, 1))
	if w.Code != http.StatusInsufficientStorage {
		t.Errorf("status = %d, want 507", w.Code)
	}
}

func TestInsertRow_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/rows", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTablesCountAndRows(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/rows", validRow)
	do(t, router, http.MethodPost, "/rows", validRow)

	w := do(t, router, http.MethodGet, "/tables/users/count", "")
	var count CountResponse
	_ = json.Unmarshal(w.Body.Bytes(), &count)
	if count.Count != 2 {
		t.Errorf("count = %d, want 2", count.Count)
	}

	w = do(t, router, http.MethodGet, "/tables/unknown/count", "")
	_ = json.Unmarshal(w.Body.Bytes(), &count)
	if w.Code != http.StatusOK || count.Count != 0 {
		t.Errorf("unknown table count = %d (%d)", count.Count, w.Code)
	}

	w = do(t, router, http.MethodGet, "/tables", "")
	var tables TableListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tables)
	if len(tables.Tables) != 1 || tables.Tables[0].Tiers["gold"] != 2 {
		t.Errorf("tables = %+v", tables.Tables)
	}

	w = do(t, router, http.MethodGet, "/tables/users/rows?limit=1", "")
	var rows RowListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &rows)
	if rows.Total != 2 || len(rows.Rows) != 1 || rows.Rows[0].RowID != 2 {
		t.Errorf("rows = %+v", rows)
	}

	w = do(t, router, http.MethodGet, "/tables/users/rows/1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"actor":"u1"`) {
		t.Errorf("get row = %d %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/tables/users/rows/99", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing row = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodGet, "/tables/users/rows/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}
}

func TestDeleteRow(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodDelete, "/tables/users/rows/1", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown table delete = %d, want 400", w.Code)
	}

	do(t, router, http.MethodPost, "/rows", validRow)
	w = do(t, router, http.MethodDelete, "/tables/users/rows/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/tables/users/rows/1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted row = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/tables/users/rows/1", "")
	if w.Code != http.StatusConflict {
		t.Errorf("delete with zero rows = %d, want 409", w.Code)
	}
	var resp StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "generic_error" || resp.Message == "" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestVerifyAndScores(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/proofs/verify", `{"proof":"`+testutil.SampleProofHex+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("verify = %d", w.Code)
	}
	var resp ProofResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Scores.Overall != 80 || resp.Scores.Tier != "gold" || resp.Scores.Objective != 90 {
		t.Errorf("scores = %+v", resp.Scores)
	}

	w = do(t, router, http.MethodPost, "/proofs/scores", `{"proof":""}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty proof = %d, want 422", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Scores.Overall != 0 || resp.Status != "invalid_proof" {
		t.Errorf("failed verification must carry zero scores: %+v", resp)
	}
}

func TestComputeOverall(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/scores/overall", `{"values":[100,80,90,70,60,80]}`)
	var resp OverallResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Overall != 80 {
		t.Errorf("overall = %d (%d)", resp.Overall, w.Code)
	}

	w = do(t, router, http.MethodPost, "/scores/overall", `{"values":[100,80,90,70,60,180]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("out of range = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, "/scores/overall", `{"values":[1,2,3]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("short values = %d, want 400", w.Code)
	}
}

func TestSaveAndLastError(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/store/save", "")
	if w.Code != http.StatusOK {
		t.Errorf("save = %d", w.Code)
	}

	do(t, router, http.MethodPost, "/rows", strings.Replace(validRow, `"actor": "u1"`, `"actor": ""`, 1))
	w = do(t, router, http.MethodGet, "/errors/last", "")
	var resp LastErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.Contains(resp.Message, "actor") {
		t.Errorf("last error = %q", resp.Message)
	}
}

func TestSearch(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/rows", strings.Replace(validRow, "initial import", "census uniqueword", 1))

	w := do(t, router, http.MethodGet, "/search?q=uniqueword", "")
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Errorf("results = %+v", resp.Results)
	}

	w = do(t, router, http.MethodGet, "/search", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
}

func uploadRequest(t *testing.T, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "proof.bin")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/proofs/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadProof(t *testing.T) {
	_, router := testEnv(t, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, testutil.SampleProof))
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ProofUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Filename != "proof.bin" || resp.Size != 7 || resp.Scores.Overall != 80 {
		t.Errorf("unexpected response: %+v", resp)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, make([]byte, 65<<10)))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("proof over 64 KiB = %d, want 422", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, make([]byte, 100<<10)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("body over the upload cap = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/proofs/upload", strings.NewReader("x"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-multipart = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret")

	w := do(t, router, http.MethodGet, "/tables", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/tables", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestEventsRoute(t *testing.T) {
	led := testutil.TestLedger(t)
	broker := sse.NewBroker(time.Hour)
	defer broker.Close()
	svc := ingest.NewService(testutil.TestStore(t, led), led, broker, testutil.QuietLogger())
	router := NewRouter(svc, false, "", broker)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for broker.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if broker.ClientCount() != 1 {
		t.Fatal("events handler did not subscribe")
	}
	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}
