package main

import (
	"context"
	"fmt"
	"net/http"
)

func doAccountCreate(ctx context.Context, cfg cliConfig, holder string, balance int64, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.accounts.create", map[string]any{"holder_name": holder, "initial_balance": balance}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPost, "/api/accounts", map[string]any{"holder_name": holder, "initial_balance": balance}, out)
}

func doAccountGet(ctx context.Context, cfg cliConfig, id uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.accounts.get", map[string]any{"id": id}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, fmt.Sprintf("/api/accounts/%d", id), nil, out)
}

func doAccountsList(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.accounts.list", map[string]any{}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, "/api/accounts", nil, out)
}

func doAccountBalance(ctx context.Context, cfg cliConfig, id uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.accounts.balance", map[string]any{"id": id}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, fmt.Sprintf("/api/accounts/%d/balance", id), nil, out)
}

func doAccountRename(ctx context.Context, cfg cliConfig, id uint, holder string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.accounts.update", map[string]any{"id": id, "holder_name": holder}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPatch, fmt.Sprintf("/api/accounts/%d", id), map[string]any{"holder_name": holder}, out)
}

func doAccountDelete(ctx context.Context, cfg cliConfig, id uint) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.accounts.delete", map[string]any{"id": id}, nil)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodDelete, fmt.Sprintf("/api/accounts/%d", id), nil, nil)
}

func doTransfer(ctx context.Context, cfg cliConfig, from, to uint, amount int64, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.transfers.execute", map[string]any{"sender_id": from, "receiver_id": to, "amount": amount}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPost, "/api/transfers", map[string]any{"sender_id": from, "receiver_id": to, "amount": amount}, out)
}

func doTransactionsList(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.transactions.list", map[string]any{}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, "/api/transactions", nil, out)
}

func doTransactionGet(ctx context.Context, cfg cliConfig, id uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.transactions.get", map[string]any{"id": id}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, fmt.Sprintf("/api/transactions/%d", id), nil, out)
}

func doTransactionReverse(ctx context.Context, cfg cliConfig, id uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.transactions.reverse", map[string]any{"id": id}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPost, fmt.Sprintf("/api/transactions/%d/reverse", id), nil, out)
}

func doStakeCreate(ctx context.Context, cfg cliConfig, account uint, amount int64, period uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.stakes.create", map[string]any{"account_id": account, "amount": amount, "period_seconds": period}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPost, "/api/stakes", map[string]any{"account_id": account, "amount": amount, "period_seconds": period}, out)
}

func doStakesList(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.stakes.list", map[string]any{}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, "/api/stakes", nil, out)
}

func doApplyInterest(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.interest.apply", map[string]any{}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPost, "/api/operations/apply-interest", nil, out)
}

func doDistributeRewards(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.rewards.distribute", map[string]any{}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPost, "/api/operations/distribute-rewards", nil, out)
}

func doAuditList(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.audit.list", map[string]any{}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, "/api/audit/entries", nil, out)
}

func doAuditLog(ctx context.Context, cfg cliConfig, action string, account uint, details string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.audit.log", map[string]any{"action": action, "account_id": account, "details": details}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPost, "/api/audit/entries", map[string]any{"action": action, "account_id": account, "details": details}, out)
}

func doNotifySend(ctx context.Context, cfg cliConfig, account uint, message string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.notifications.create", map[string]any{"account_id": account, "message": message}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodPost, "/api/notifications", map[string]any{"account_id": account, "message": message}, out)
}

func doNotifyList(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.notifications.list", map[string]any{}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, "/api/notifications", nil, out)
}

func doSuspiciousCheck(ctx context.Context, cfg cliConfig, account uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "ledger.accounts.suspicious", map[string]any{"id": account}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.request(ctx, http.MethodGet, fmt.Sprintf("/api/accounts/%d/suspicious-activity", account), nil, out)
}
