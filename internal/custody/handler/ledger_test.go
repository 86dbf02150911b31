package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jmerrifield20/custodyledger/internal/custody"
	"github.com/jmerrifield20/custodyledger/internal/custody/handler"
	"github.com/jmerrifield20/custodyledger/internal/evidence"
	"github.com/jmerrifield20/custodyledger/internal/ledger"
	"github.com/jmerrifield20/custodyledger/internal/stream"
)

func setupLedgerRouter(t *testing.T, s *custody.Session, hub *stream.Hub) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	handler.NewLedgerHandler(s, hub, zap.NewNop()).Register(v1)
	return r
}

func register(t *testing.T, s *custody.Session, id string) {
	t.Helper()
	if _, err := s.Register(context.Background(), custody.RegisterCommand{
		ID: id, Content: []byte(id), Custodian: evidence.RoleInvestigator,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestLedgerOverview_200(t *testing.T) {
	s := newSession()
	router := setupLedgerRouter(t, s, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/ledger", nil)
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp) //nolint:errcheck
	if int(resp["blocks"].(float64)) != 0 {
		t.Errorf("expected empty ledger, got %v", resp["blocks"])
	}
	if resp["root"] != ledger.GenesisHash {
		t.Errorf("empty root: got %v", resp["root"])
	}
	if resp["session"] != s.ID().String() {
		t.Errorf("session: got %v", resp["session"])
	}

	register(t, s, "E1")
	w = doJSON(router, http.MethodGet, "/api/v1/ledger", nil)
	json.Unmarshal(w.Body.Bytes(), &resp) //nolint:errcheck
	if int(resp["blocks"].(float64)) != 1 {
		t.Errorf("expected 1 block, got %v", resp["blocks"])
	}
}

func TestLedgerVerify_200(t *testing.T) {
	s := newSession()
	register(t, s, "E1")
	register(t, s, "E2")
	router := setupLedgerRouter(t, s, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/ledger/verify", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res custody.VerifyResult
	json.Unmarshal(w.Body.Bytes(), &res) //nolint:errcheck
	if !res.Valid || res.Index != nil || res.Blocks != 2 {
		t.Errorf("unexpected verify result: %+v", res)
	}
}

func TestLedgerGetBlock(t *testing.T) {
	s := newSession()
	register(t, s, "E1")
	router := setupLedgerRouter(t, s, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/ledger/blocks/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var b ledger.Block
	json.Unmarshal(w.Body.Bytes(), &b) //nolint:errcheck
	if b.EvidenceID != "E1" || b.PreviousHash != ledger.GenesisHash {
		t.Errorf("unexpected block: %+v", b)
	}

	for path, want := range map[string]int{
		"/api/v1/ledger/blocks/1":   http.StatusNotFound,
		"/api/v1/ledger/blocks/-1":  http.StatusBadRequest,
		"/api/v1/ledger/blocks/abc": http.StatusBadRequest,
	} {
		if w := doJSON(router, http.MethodGet, path, nil); w.Code != want {
			t.Errorf("%s: expected %d, got %d", path, want, w.Code)
		}
	}
}

func TestLedgerListBlocks_verifiesOffline(t *testing.T) {
	s := newSession()
	register(t, s, "E1")
	if _, err := s.Transfer(context.Background(), custody.TransferCommand{ID: "E1", NewCustodian: evidence.RoleAnalyst}); err != nil {
		t.Fatal(err)
	}
	router := setupLedgerRouter(t, s, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/ledger/blocks", nil)
	var resp struct {
		Blocks []ledger.Block `json:"blocks"`
		Count  int            `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Fatalf("expected 2 blocks, got %d", resp.Count)
	}
	if err := ledger.VerifyBlocks(resp.Blocks); err != nil {
		t.Errorf("exported chain does not verify: %v", err)
	}
	if resp.Blocks[0].Action != ledger.ActionRegister || resp.Blocks[1].Action != ledger.ActionTransfer {
		t.Errorf("block actions: got %q, %q", resp.Blocks[0].Action, resp.Blocks[1].Action)
	}
}

func TestLedgerStream_disabled(t *testing.T) {
	router := setupLedgerRouter(t, newSession(), nil)
	if w := doJSON(router, http.MethodGet, "/api/v1/ledger/stream", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestLedgerStream_backlogThenLive(t *testing.T) {
	s := newSession()
	hub := stream.NewHub(nil, zap.NewNop())
	defer hub.Close()
	s.AddSink(hub)
	register(t, s, "E1")

	srv := httptest.NewServer(setupLedgerRouter(t, s, hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ledger/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck

	var first ledger.Block
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Index != 0 || first.EvidenceID != "E1" {
		t.Fatalf("backlog block: %+v", first)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	register(t, s, "E2")

	var second ledger.Block
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatal(err)
	}
	if second.Index != 1 || second.EvidenceID != "E2" || second.PreviousHash != first.Hash {
		t.Errorf("live block: %+v", second)
	}
}
