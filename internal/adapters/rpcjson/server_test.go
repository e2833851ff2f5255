package rpcjson

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/clearledger/clearledger/internal/adapters/db/sqlite"
	"github.com/clearledger/clearledger/internal/application"
	"github.com/clearledger/clearledger/internal/domain"
)

func newTestRPCServer(t *testing.T) *Server {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqlite.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return &Server{service: application.NewLedgerService(sqlite.NewStores(db))}
}

func call(t *testing.T, s *Server, method string, params any) response {
	t.Helper()

	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return s.dispatch(context.Background(), request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  raw,
		ID:      1,
	})
}

func TestDispatchAccountLifecycle(t *testing.T) {
	s := newTestRPCServer(t)

	resp := call(t, s, "ledger.accounts.create", map[string]any{"holder_name": "Alice", "initial_balance": 5000})
	if resp.Error != nil {
		t.Fatalf("create: %+v", resp.Error)
	}
	account, ok := resp.Result.(domain.Account)
	if !ok {
		t.Fatalf("create result type %T", resp.Result)
	}
	if account.HolderName != "Alice" || account.Balance != 5000 {
		t.Fatalf("got account %+v", account)
	}

	resp = call(t, s, "ledger.accounts.get", map[string]any{"id": account.ID})
	if resp.Error != nil {
		t.Fatalf("get: %+v", resp.Error)
	}
}

func TestDispatchErrorCodes(t *testing.T) {
	s := newTestRPCServer(t)

	resp := call(t, s, "ledger.accounts.get", map[string]any{"id": 99})
	if resp.Error == nil || resp.Error.Code != 40400 {
		t.Fatalf("missing account: %+v", resp.Error)
	}

	a := call(t, s, "ledger.accounts.create", map[string]any{"holder_name": "Alice", "initial_balance": 100})
	b := call(t, s, "ledger.accounts.create", map[string]any{"holder_name": "Bob", "initial_balance": 0})
	alice := a.Result.(domain.Account)
	bob := b.Result.(domain.Account)

	resp = call(t, s, "ledger.transfers.execute", map[string]any{
		"sender_id": alice.ID, "receiver_id": bob.ID, "amount": 500,
	})
	if resp.Error == nil || resp.Error.Code != 40900 {
		t.Fatalf("insufficient funds: %+v", resp.Error)
	}

	resp = call(t, s, "ledger.transfers.execute", map[string]any{
		"sender_id": alice.ID, "receiver_id": alice.ID, "amount": 50,
	})
	if resp.Error == nil || resp.Error.Code != 42200 {
		t.Fatalf("self transfer: %+v", resp.Error)
	}
}

func TestDispatchProtocolErrors(t *testing.T) {
	s := newTestRPCServer(t)
	ctx := context.Background()

	resp := s.dispatch(ctx, request{JSONRPC: "1.0", Method: "ledger.accounts.list", ID: 1})
	if resp.Error == nil || resp.Error.Code != -32600 {
		t.Fatalf("bad version: %+v", resp.Error)
	}

	resp = s.dispatch(ctx, request{JSONRPC: "2.0", Method: "ledger.bogus", ID: 1})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("unknown method: %+v", resp.Error)
	}

	resp = s.dispatch(ctx, request{JSONRPC: "2.0", Method: "ledger.accounts.get", ID: 1})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("missing params: %+v", resp.Error)
	}
}
