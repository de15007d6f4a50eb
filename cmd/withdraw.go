package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lightlink-network/ll-withdrawer/withdrawal"
)

var WithdrawCommand = &cli.Command{
	Name:   "withdraw",
	Usage:  "Withdraws ETH from LightLink to L1 and drives it until finalized",
	Flags:  []cli.Flag{AmountFlag},
	Action: Withdraw,
}

var ResumeCommand = &cli.Command{
	Name:   "resume",
	Usage:  "Continues the oldest unfinished withdrawal of the account",
	Action: Resume,
}

var DepositCommand = &cli.Command{
	Name:   "deposit",
	Usage:  "Deposits ETH from L1 to the same account on LightLink",
	Flags:  []cli.Flag{AmountFlag},
	Action: Deposit,
}

func Withdraw(c *cli.Context) error {
	e, err := setup(c, withdrawal.TabWithdraw)
	if err != nil {
		return err
	}
	defer e.close()

	if active := e.session.Active(); active != nil {
		return fmt.Errorf("%w: %s, run resume to continue it", withdrawal.ErrWithdrawalInProgress, active.WithdrawalHash)
	}

	w, err := e.session.Withdraw(c.Context, c.String(AmountFlag.Name))
	if err != nil {
		return err
	}

	e.logger.Info("withdrawal finalized", "withdrawal_hash", w.WithdrawalHash, "finalize_hash", w.FinalizeHash, "amount", w.Amount)
	return nil
}

func Resume(c *cli.Context) error {
	e, err := setup(c, withdrawal.TabWithdraw)
	if err != nil {
		return err
	}
	defer e.close()

	if e.session.Active() == nil {
		e.logger.Info("no unfinished withdrawal", "address", e.account.Hex())
		return nil
	}

	w, err := e.session.Continue(c.Context)
	if err != nil {
		return err
	}

	e.logger.Info("withdrawal finalized", "withdrawal_hash", w.WithdrawalHash, "finalize_hash", w.FinalizeHash, "amount", w.Amount)
	return nil
}

func Deposit(c *cli.Context) error {
	e, err := setup(c, withdrawal.TabDeposit)
	if err != nil {
		return err
	}
	defer e.close()

	receipt, err := e.session.Deposit(c.Context, c.String(AmountFlag.Name))
	if err != nil {
		return err
	}

	e.logger.Info("deposit confirmed on L1", "tx_hash", receipt.TxHash, "block", receipt.BlockNumber)
	return nil
}
