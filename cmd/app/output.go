package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/clearledger/clearledger/internal/domain"
)

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatSender(id uint64) string {
	if id == domain.SystemAccountID {
		return "system"
	}
	return strconv.FormatUint(id, 10)
}

func printAccount(item domain.Account) {
	printKV([][2]string{
		{"id", strconv.FormatUint(item.ID, 10)},
		{"holder", item.HolderName},
		{"balance", domain.FormatAmount(item.Balance)},
		{"created_at", formatTime(item.CreatedAt)},
	})
}

func printAccounts(items []domain.Account) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(item.ID, 10),
			item.HolderName,
			domain.FormatAmount(item.Balance),
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "HOLDER", "BALANCE", "CREATED_AT"}, rows)
}

func printTransaction(item domain.Transaction) {
	printKV([][2]string{
		{"id", strconv.FormatUint(item.ID, 10)},
		{"from", formatSender(item.SenderID)},
		{"to", strconv.FormatUint(item.ReceiverID, 10)},
		{"amount", domain.FormatAmount(item.Amount)},
		{"at", formatTime(item.Timestamp)},
	})
}

func printTransactions(items []domain.Transaction) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(item.ID, 10),
			formatSender(item.SenderID),
			strconv.FormatUint(item.ReceiverID, 10),
			domain.FormatAmount(item.Amount),
			formatTime(item.Timestamp),
		})
	}
	printTable([]string{"ID", "FROM", "TO", "AMOUNT", "AT"}, rows)
}

func printStake(item domain.Stake) {
	settled := "-"
	if item.SettledAt != nil {
		settled = formatTime(*item.SettledAt)
	}
	printKV([][2]string{
		{"id", strconv.FormatUint(item.ID, 10)},
		{"account", strconv.FormatUint(item.AccountID, 10)},
		{"amount", domain.FormatAmount(item.Amount)},
		{"since", formatTime(item.Since)},
		{"matures_at", formatTime(item.MaturesAt())},
		{"state", string(item.State)},
		{"settled_at", settled},
	})
}

func printStakes(items []domain.Stake) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		settled := "-"
		if item.SettledAt != nil {
			settled = formatTime(*item.SettledAt)
		}
		rows = append(rows, []string{
			strconv.FormatUint(item.ID, 10),
			strconv.FormatUint(item.AccountID, 10),
			domain.FormatAmount(item.Amount),
			formatTime(item.MaturesAt()),
			string(item.State),
			settled,
		})
	}
	printTable([]string{"ID", "ACCOUNT", "AMOUNT", "MATURES_AT", "STATE", "SETTLED_AT"}, rows)
}

func printAuditEntries(items []domain.AuditEntry) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(item.ID, 10),
			string(item.Action),
			strconv.FormatUint(item.AccountID, 10),
			item.Details,
			formatTime(item.Timestamp),
		})
	}
	printTable([]string{"ID", "ACTION", "ACCOUNT", "DETAILS", "AT"}, rows)
}

func printNotifications(items []domain.Notification) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(item.ID, 10),
			strconv.FormatUint(item.AccountID, 10),
			item.Message,
			formatTime(item.Timestamp),
		})
	}
	printTable([]string{"ID", "ACCOUNT", "MESSAGE", "AT"}, rows)
}
