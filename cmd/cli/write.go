package main

import (
	"fmt"

	"github.com/amirasaad/mileage/pkg/app"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/spf13/cobra"
)

type writeFlags struct {
	userID      int64
	points      int64
	sourceType  string
	sourceID    int64
	description string
}

func newEarnCmd(opts *rootOptions) *cobra.Command {
	return newWriteCmd(opts, mileage.KindEarn, "earn", "Credit points to a user", true)
}

func newUseCmd(opts *rootOptions) *cobra.Command {
	return newWriteCmd(opts, mileage.KindUse, "use", "Debit points a user spent", true)
}

func newExpireCmd(opts *rootOptions) *cobra.Command {
	return newWriteCmd(opts, mileage.KindExpire, "expire", "Remove expired points from a user", false)
}

func newAdjustCmd(opts *rootOptions) *cobra.Command {
	cmd := newWriteCmd(opts, mileage.KindAdjust, "adjust", "Apply a signed administrative correction", false)
	cmd.Example = "  mileage adjust --user 7 --points=-20 --description \"duplicate credit\""
	return cmd
}

// newWriteCmd builds one ledger write command. Earn and use carry an optional
// source; the others carry only a description.
func newWriteCmd(opts *rootOptions, kind mileage.Kind, use, short string, withSource bool) *cobra.Command {
	f := &writeFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.WriteRequest{
				Kind:        kind,
				UserID:      f.userID,
				Points:      f.points,
				Description: f.description,
			}
			if withSource {
				req.Source.Type = f.sourceType
				if cmd.Flags().Changed("source-id") {
					id := f.sourceID
					req.Source.ID = &id
				}
			}
			if req.UserID <= 0 {
				return fmt.Errorf("--user must be a positive id, got %d", req.UserID)
			}

			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			a, closeApp, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp()

			res, err := a.Write(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s for user %d: %w", use, req.UserID, err)
			}
			return p.result(res)
		},
	}

	cmd.Flags().Int64Var(&f.userID, "user", 0, "user id")
	cmd.Flags().Int64Var(&f.points, "points", 0, "number of points")
	cmd.Flags().StringVar(&f.description, "description", "", "free-text note stored with the transaction")
	if withSource {
		cmd.Flags().StringVar(&f.sourceType, "source-type", "", "what triggered the transaction, e.g. PROGRAM")
		cmd.Flags().Int64Var(&f.sourceID, "source-id", 0, "id of the triggering entity; requires --source-type")
	}
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("points")
	return cmd
}
