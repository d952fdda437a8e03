package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a user's account balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			a, closeApp, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp()

			acct, err := a.Ledger.GetAccount(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("balance for user %d: %w", userID, err)
			}
			return p.account(acct)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay a user's transactions and compare with the stored balance",
		Long:  "Replay a user's transactions from zero and compare every snapshot with the stored account. Exits non-zero when they disagree.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			a, closeApp, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp()

			report, err := a.Ledger.Verify(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("verify user %d: %w", userID, err)
			}
			if err := p.report(userID, report); err != nil {
				return err
			}
			if !report.Consistent {
				return fmt.Errorf("ledger for user %d is inconsistent", userID)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
