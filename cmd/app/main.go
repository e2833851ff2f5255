package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	sqliteadapter "github.com/clearledger/clearledger/internal/adapters/db/sqlite"
	httpadapter "github.com/clearledger/clearledger/internal/adapters/http"
	rpcadapter "github.com/clearledger/clearledger/internal/adapters/rpcjson"
	"github.com/clearledger/clearledger/internal/application"
	"github.com/clearledger/clearledger/internal/domain"
)

var log = logrus.StandardLogger()

func main() {
	_ = godotenv.Load()

	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "clearledger",
		Usage: "Persistent ledger server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			configCommand(),
			accountsCommand(),
			transferCommand(),
			transactionsCommand(),
			stakeCommand(),
			opsCommand(),
			auditCommand(),
			notifyCommand(),
			monitorCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, ":8080", "/tmp/clearledger.sock", "clearledger.db")
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the ledger server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address", Sources: cli.EnvVars("CLEARLEDGER_ADDR")},
			&cli.StringFlag{Name: "rpc-socket", Value: "/tmp/clearledger.sock", Usage: "JSON-RPC unix socket path", Sources: cli.EnvVars("CLEARLEDGER_RPC_SOCKET")},
			&cli.StringFlag{Name: "db-path", Value: "clearledger.db", Usage: "SQLite database path", Sources: cli.EnvVars("CLEARLEDGER_DB_PATH")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, c.String("addr"), c.String("rpc-socket"), c.String("db-path"))
		},
	}
}

func runServer(ctx context.Context, addr, rpcSocket, dbPath string) error {
	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		return err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}

	service := application.NewLedgerService(sqliteadapter.NewStores(db))
	router := httpadapter.NewRouter(service)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	rpcSrv, err := rpcadapter.Start(rpcSocket, service)
	if err != nil {
		return err
	}
	defer func() {
		_ = rpcSrv.Close()
	}()
	log.WithField("socket", rpcSocket).Info("json-rpc listening")

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("http listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or set CLI connection settings",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print current CLI settings",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					printKV([][2]string{
						{"transport", cfg.Transport},
						{"server", cfg.Server},
						{"socket", cfg.Socket},
					})
					return nil
				},
			},
			{
				Name:  "set",
				Usage: "Persist CLI connection settings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Usage: "HTTP server base URL"},
					&cli.StringFlag{Name: "socket", Usage: "unix socket path"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if v := c.String("transport"); v != "" {
						if v != "uds" && v != "http" {
							return fmt.Errorf("transport must be uds or http, got %q", v)
						}
						cfg.Transport = v
					}
					if v := c.String("server"); v != "" {
						cfg.Server = v
					}
					if v := c.String("socket"); v != "" {
						cfg.Socket = v
					}
					return saveConfig(cfg)
				},
			},
		},
	}
}

func accountsCommand() *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "Account management",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Open a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "holder", Required: true, Usage: "account holder name"},
					&cli.StringFlag{Name: "balance", Value: "0", Usage: "initial balance, e.g. 120.50"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					balance, err := domain.ParseAmount(c.String("balance"))
					if err != nil {
						return err
					}
					var out domain.Account
					if err := doAccountCreate(ctx, cfg, c.String("holder"), balance, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAccount(out)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show one account",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Account
					if err := doAccountGet(ctx, cfg, uint(c.Uint("id")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAccount(out)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List all accounts",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Account
					if err := doAccountsList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAccounts(out)
					return nil
				},
			},
			{
				Name:  "balance",
				Usage: "Show an account's balance",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						AccountID uint64 `json:"account_id"`
						Balance   int64  `json:"balance"`
					}
					if err := doAccountBalance(ctx, cfg, uint(c.Uint("id")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{
						{"account_id", fmt.Sprintf("%d", out.AccountID)},
						{"balance", domain.FormatAmount(out.Balance)},
					})
					return nil
				},
			},
			{
				Name:  "rename",
				Usage: "Change an account's holder name",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "holder", Required: true, Usage: "new holder name"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Account
					if err := doAccountRename(ctx, cfg, uint(c.Uint("id")), c.String("holder"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAccount(out)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete an account (refused while it has active stakes)",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doAccountDelete(ctx, cfg, uint(c.Uint("id"))); err != nil {
						return err
					}
					fmt.Printf("account %d deleted\n", uint(c.Uint("id")))
					return nil
				},
			},
		},
	}
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Move funds between accounts",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "from", Required: true, Usage: "sender account id"},
			&cli.UintFlag{Name: "to", Required: true, Usage: "receiver account id"},
			&cli.StringFlag{Name: "amount", Required: true, Usage: "amount, e.g. 300.00"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			amount, err := domain.ParseAmount(c.String("amount"))
			if err != nil {
				return err
			}
			var out domain.Transaction
			if err := doTransfer(ctx, cfg, uint(c.Uint("from")), uint(c.Uint("to")), amount, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printTransaction(out)
			return nil
		},
	}
}

func transactionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "transactions",
		Usage: "Transaction log",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all transactions",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Transaction
					if err := doTransactionsList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printTransactions(out)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show one transaction",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Transaction
					if err := doTransactionGet(ctx, cfg, uint(c.Uint("id")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printTransaction(out)
					return nil
				},
			},
			{
				Name:  "reverse",
				Usage: "Undo a transaction with a compensating one",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true, Usage: "transaction to reverse"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Transaction
					if err := doTransactionReverse(ctx, cfg, uint(c.Uint("id")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printTransaction(out)
					return nil
				},
			},
		},
	}
}

func stakeCommand() *cli.Command {
	return &cli.Command{
		Name:  "stake",
		Usage: "Staking",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Lock funds for a fixed period",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "account", Required: true, Usage: "account id"},
					&cli.StringFlag{Name: "amount", Required: true, Usage: "amount to stake, e.g. 500.00"},
					&cli.UintFlag{Name: "period", Required: true, Usage: "stake period in seconds"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					amount, err := domain.ParseAmount(c.String("amount"))
					if err != nil {
						return err
					}
					var out domain.Stake
					if err := doStakeCreate(ctx, cfg, uint(c.Uint("account")), amount, uint(c.Uint("period")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printStake(out)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List all stakes",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Stake
					if err := doStakesList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printStakes(out)
					return nil
				},
			},
		},
	}
}

func opsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ops",
		Usage: "Periodic ledger operations",
		Commands: []*cli.Command{
			{
				Name:  "apply-interest",
				Usage: "Credit 1% interest to every positive balance",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						AccountsCredited int `json:"accounts_credited"`
					}
					if err := doApplyInterest(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("interest applied to %d account(s)\n", out.AccountsCredited)
					return nil
				},
			},
			{
				Name:  "distribute-rewards",
				Usage: "Settle matured stakes and pay rewards",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						SettledStakeIDs []uint64 `json:"settled_stake_ids"`
					}
					if err := doDistributeRewards(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("settled %d stake(s)\n", len(out.SettledStakeIDs))
					return nil
				},
			},
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Audit trail",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List audit entries",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.AuditEntry
					if err := doAuditList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAuditEntries(out)
					return nil
				},
			},
			{
				Name:  "log",
				Usage: "Record a manual audit entry",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "action", Required: true, Usage: "action type, e.g. account_update"},
					&cli.UintFlag{Name: "account", Usage: "related account id"},
					&cli.StringFlag{Name: "details", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.AuditEntry
					if err := doAuditLog(ctx, cfg, c.String("action"), uint(c.Uint("account")), c.String("details"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAuditEntries([]domain.AuditEntry{out})
					return nil
				},
			},
		},
	}
}

func notifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Notifications",
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "Record a notification for an account",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "account", Required: true},
					&cli.StringFlag{Name: "message", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Notification
					if err := doNotifySend(ctx, cfg, uint(c.Uint("account")), c.String("message"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printNotifications([]domain.Notification{out})
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List notifications",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Notification
					if err := doNotifyList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printNotifications(out)
					return nil
				},
			},
		},
	}
}

func monitorCommand() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Activity monitoring",
		Commands: []*cli.Command{
			{
				Name:  "suspicious",
				Usage: "Flag suspicious transactions for an account",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "account", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						AccountID             uint64   `json:"account_id"`
						FlaggedTransactionIDs []uint64 `json:"flagged_transaction_ids"`
					}
					if err := doSuspiciousCheck(ctx, cfg, uint(c.Uint("account")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					if len(out.FlaggedTransactionIDs) == 0 {
						fmt.Printf("no suspicious activity for account %d\n", out.AccountID)
						return nil
					}
					fmt.Printf("flagged transactions for account %d: ", out.AccountID)
					for i, id := range out.FlaggedTransactionIDs {
						if i > 0 {
							fmt.Print(",")
						}
						fmt.Print(id)
					}
					fmt.Println()
					return nil
				},
			},
		},
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
