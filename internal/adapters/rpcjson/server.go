package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/clearledger/clearledger/internal/application"
	"github.com/clearledger/clearledger/internal/domain"
)

type Server struct {
	service  *application.LedgerService
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.LedgerService) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "ledger.accounts.create":
		var p struct {
			HolderName     string `json:"holder_name"`
			InitialBalance int64  `json:"initial_balance"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		account, err := s.service.CreateAccount(ctx, p.HolderName, p.InitialBalance)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, account)
	case "ledger.accounts.get":
		p, ok := idParams(req.Params)
		if !ok {
			return invalidParams(req.ID)
		}
		account, err := s.service.GetAccount(ctx, p)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, account)
	case "ledger.accounts.list":
		accounts, err := s.service.ListAccounts(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, accounts)
	case "ledger.accounts.balance":
		p, ok := idParams(req.Params)
		if !ok {
			return invalidParams(req.ID)
		}
		balance, err := s.service.GetAccountBalance(ctx, p)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"account_id": p, "balance": balance})
	case "ledger.accounts.update":
		var p struct {
			ID         uint64 `json:"id"`
			HolderName string `json:"holder_name"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		account, err := s.service.UpdateAccountHolderName(ctx, p.ID, p.HolderName)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, account)
	case "ledger.accounts.delete":
		p, ok := idParams(req.Params)
		if !ok {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteAccount(ctx, p); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "ledger.accounts.suspicious":
		p, ok := idParams(req.Params)
		if !ok {
			return invalidParams(req.ID)
		}
		flagged, err := s.service.CheckForSuspiciousActivity(ctx, p)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"account_id": p, "flagged_transaction_ids": flagged})
	case "ledger.transfers.execute":
		var p struct {
			SenderID   uint64 `json:"sender_id"`
			ReceiverID uint64 `json:"receiver_id"`
			Amount     int64  `json:"amount"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		txn, err := s.service.TransferFunds(ctx, p.SenderID, p.ReceiverID, p.Amount)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, txn)
	case "ledger.transactions.list":
		txns, err := s.service.GetAllTransactions(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, txns)
	case "ledger.transactions.get":
		p, ok := idParams(req.Params)
		if !ok {
			return invalidParams(req.ID)
		}
		txn, err := s.service.GetTransaction(ctx, p)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, txn)
	case "ledger.transactions.reverse":
		p, ok := idParams(req.Params)
		if !ok {
			return invalidParams(req.ID)
		}
		reversal, err := s.service.ReverseTransaction(ctx, p)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, reversal)
	case "ledger.stakes.create":
		var p struct {
			AccountID     uint64 `json:"account_id"`
			Amount        int64  `json:"amount"`
			PeriodSeconds uint64 `json:"period_seconds"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		stake, err := s.service.CreateStake(ctx, p.AccountID, p.Amount, p.PeriodSeconds)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, stake)
	case "ledger.stakes.list":
		stakes, err := s.service.ListStakes(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, stakes)
	case "ledger.interest.apply":
		credited, err := s.service.ApplyInterestToAllAccounts(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, map[string]any{"accounts_credited": credited})
	case "ledger.rewards.distribute":
		settled, err := s.service.DistributeRewards(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, map[string]any{"settled_stake_ids": settled})
	case "ledger.audit.log":
		var p struct {
			Action    string `json:"action"`
			AccountID uint64 `json:"account_id"`
			Details   string `json:"details"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		entry, err := s.service.LogAuditEntry(ctx, domain.ActionType(p.Action), p.AccountID, p.Details)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, entry)
	case "ledger.audit.list":
		entries, err := s.service.ListAuditEntries(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, entries)
	case "ledger.notifications.create":
		var p struct {
			AccountID uint64 `json:"account_id"`
			Message   string `json:"message"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		note, err := s.service.CreateNotification(ctx, p.AccountID, p.Message)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, note)
	case "ledger.notifications.list":
		notes, err := s.service.ListNotifications(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, notes)
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func result(id any, payload any) response {
	return response{JSONRPC: "2.0", Result: payload, ID: id}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func idParams(raw json.RawMessage) (uint64, bool) {
	var p struct {
		ID uint64 `json:"id"`
	}
	if !decodeParams(raw, &p) {
		return 0, false
	}
	return p.ID, true
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

// appError translates the ledger error taxonomy into application codes
// mirroring the HTTP statuses: 40400 missing, 40900 funds shortfall,
// 42200 state-rule violation.
func appError(id any, err error) response {
	code := 50000
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = 40400
	case errors.Is(err, domain.ErrInsufficientFunds):
		code = 40900
	case errors.Is(err, domain.ErrInvalidState):
		code = 42200
	}
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: err.Error()}, ID: id}
}

func internalError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 50000, Message: fmt.Sprintf("internal error: %v", err)}, ID: id}
}
