package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/lightlink-network/ll-withdrawer/withdrawal"
)

var StatusCommand = &cli.Command{
	Name:   "status",
	Usage:  "Shows stored withdrawals, or the steps of one with --hash",
	Flags:  []cli.Flag{AddressFlag, HashFlag},
	Action: Status,
}

func Status(c *cli.Context) error {
	store, closeStore, err := openStore(c, slog.Default())
	if err != nil {
		return err
	}
	defer closeStore()

	if hash := c.String(HashFlag.Name); hash != "" {
		w, err := store.Get(c.Context, hash)
		if err != nil {
			return fmt.Errorf("failed to get withdrawal %s: %w", hash, err)
		}
		explorers := withdrawal.Explorers{
			L1: c.String(L1ExplorerURLFlag.Name),
			L2: c.String(L2ExplorerURLFlag.Name),
		}
		renderWithdrawals(c.App.Writer, []*models.Withdrawal{w})
		renderSteps(c.App.Writer, withdrawal.StepsOf(w, false, explorers))
		return nil
	}

	var records []*models.Withdrawal
	if address := c.String(AddressFlag.Name); address != "" {
		records, err = store.Query(c.Context, models.Filter{Address: address})
	} else {
		records, err = store.ListAll(c.Context)
	}
	if err != nil {
		return fmt.Errorf("failed to list withdrawals: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(c.App.Writer, "No withdrawals.")
		return nil
	}
	renderWithdrawals(c.App.Writer, records)
	return nil
}

func renderWithdrawals(out io.Writer, records []*models.Withdrawal) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Withdrawal Hash", "Address", "Amount (ETH)", "Status", "Updated"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAutoWrapText(false)

	for _, w := range records {
		table.Append([]string{
			w.WithdrawalHash,
			w.Address,
			w.Amount,
			w.Status.String(),
			w.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	table.Render()
}

func renderSteps(out io.Writer, steps []withdrawal.Step) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Step", "State", "Link"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAutoWrapText(false)

	for i, step := range steps {
		table.Append([]string{strconv.Itoa(i + 1), step.Label, string(step.State), step.Link})
	}
	table.Render()
}
