package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/custodyledger/internal/auth"
	"github.com/jmerrifield20/custodyledger/internal/custody"
	"github.com/jmerrifield20/custodyledger/internal/custody/handler"
	"github.com/jmerrifield20/custodyledger/internal/stream"
	"github.com/jmerrifield20/custodyledger/pkg/client"
	"github.com/jmerrifield20/custodyledger/pkg/digest"
)

// ── Test server ─────────────────────────────────────────────────────────

func newServer(t *testing.T, tokens *auth.TokenIssuer) (*httptest.Server, *custody.Session) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := custody.NewSession(custody.Config{AnchorTransfers: true}, zap.NewNop())
	hub := stream.NewHub(nil, zap.NewNop())
	s.AddSink(hub)

	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	v1 := r.Group("/api/v1")
	handler.NewEvidenceHandler(s, auth.RequireToken(tokens), zap.NewNop()).Register(v1)
	handler.NewLedgerHandler(s, hub, zap.NewNop()).Register(v1)
	handler.NewAuthHandler(auth.Operators{"alice": hash}, tokens, zap.NewNop()).Register(v1)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, s
}

func newClient(t *testing.T, base string, opts ...client.Option) *client.Client {
	t.Helper()
	c, err := client.New(base, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestNew_invalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "ftp://x", "http://"} {
		if _, err := client.New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestRegisterTransferVerify(t *testing.T) {
	srv, _ := newServer(t, nil)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	res, err := c.Register(ctx, client.RegisterRequest{ID: "E1", Content: []byte("sample"), Custodian: "Investigator"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.ContentHash != digest.String("sample") {
		t.Errorf("content hash: got %q", res.ContentHash)
	}

	tr, err := c.Transfer(ctx, "E1", "evidence officer")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if tr.NewCustodian != "EvidenceOfficer" || tr.PreviousCustodian != "Investigator" || tr.BlockIndex != 1 {
		t.Errorf("unexpected transfer: %+v", tr)
	}

	e, err := c.GetEvidence(ctx, "E1")
	if err != nil {
		t.Fatal(err)
	}
	if len(e.History) != 2 || e.History[0].From != nil || *e.History[1].From != "Investigator" {
		t.Errorf("unexpected history: %+v", e.History)
	}

	v, err := c.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Valid || v.Blocks != 2 {
		t.Errorf("unexpected verify: %+v", v)
	}

	blocks, err := c.Blocks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 || blocks[1].PreviousHash != blocks[0].Hash {
		t.Errorf("unexpected blocks: %+v", blocks)
	}

	o, err := c.Ledger(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if o.Root != blocks[1].Hash {
		t.Errorf("root: got %q, want %q", o.Root, blocks[1].Hash)
	}
}

func TestErrors(t *testing.T) {
	srv, _ := newServer(t, nil)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	if _, err := c.GetEvidence(ctx, "missing"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Register(ctx, client.RegisterRequest{ID: "E1", Custodian: "Analyst"}); err != nil {
		t.Fatal(err)
	}
	_, err := c.Register(ctx, client.RegisterRequest{ID: "E1", Custodian: "Analyst"})
	if !errors.Is(err, client.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Message == "" {
		t.Errorf("expected APIError with message, got %v", err)
	}
	if _, err := c.Block(ctx, 9); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound for block, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	tokens := auth.NewTokenIssuer([]byte("secret"), "custodyd", time.Hour)
	srv, _ := newServer(t, tokens)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.Register(ctx, client.RegisterRequest{ID: "E1", Custodian: "Analyst"})
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized before login, got %v", err)
	}
	if _, err := c.Login(ctx, "alice", "wrong"); !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for bad password, got %v", err)
	}

	tok, err := c.Login(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.TokenType != "Bearer" || tok.Token == "" {
		t.Errorf("unexpected token: %+v", tok)
	}
	if _, err := c.Register(ctx, client.RegisterRequest{ID: "E1", Custodian: "Analyst"}); err != nil {
		t.Errorf("Register after login: %v", err)
	}

	preset := newClient(t, srv.URL, client.WithBearerToken(tok.Token))
	if _, err := preset.Transfer(ctx, "E1", "Prosecutor"); err != nil {
		t.Errorf("Transfer with preset token: %v", err)
	}
}

func TestRoles(t *testing.T) {
	srv, _ := newServer(t, nil)
	roles, err := newClient(t, srv.URL).Roles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Investigator", "EvidenceOfficer", "Analyst", "Prosecutor"}
	if len(roles) != len(want) {
		t.Fatalf("roles: got %v", roles)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("roles[%d]: got %q, want %q", i, roles[i], want[i])
		}
	}
}

func TestWatch(t *testing.T) {
	srv, s := newServer(t, nil)
	c := newClient(t, srv.URL)
	if _, err := c.Register(context.Background(), client.RegisterRequest{ID: "E1", Custodian: "Analyst"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []client.Block
	errDone := errors.New("done")
	err := c.Watch(ctx, func(b client.Block) error {
		got = append(got, b)
		if len(got) == 1 {
			// The backlog block has arrived; append a live one.
			go s.Transfer(context.Background(), custody.TransferCommand{ID: "E1", NewCustodian: "Prosecutor"}) //nolint:errcheck
			return nil
		}
		return errDone
	})
	if !errors.Is(err, errDone) {
		t.Fatalf("Watch: %v", err)
	}
	if got[0].Index != 0 || got[1].Index != 1 || got[1].Event != 1 {
		t.Errorf("unexpected blocks: %+v", got)
	}
}
