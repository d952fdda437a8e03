package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/service/ledger"
	accountweb "github.com/amirasaad/mileage/webapi/account"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	outputAuto = "auto"
	outputJSON = "json"
	outputText = "text"
)

var (
	labelColor = color.New(color.FgCyan)
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	badColor   = color.New(color.FgRed, color.Bold)
)

// printer renders command results as indented JSON or colored text.
// Auto mode picks text only when stdout is a terminal.
type printer struct {
	w    io.Writer
	json bool
}

func (o *rootOptions) printer(cmd *cobra.Command) (*printer, error) {
	w := cmd.OutOrStdout()
	p := &printer{w: w}
	switch o.output {
	case outputJSON:
		p.json = true
	case outputText:
	case outputAuto:
		f, ok := w.(*os.File)
		p.json = !ok || !term.IsTerminal(int(f.Fd()))
	default:
		return nil, fmt.Errorf("unknown output format %q, want auto, json or text", o.output)
	}
	return p, nil
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) result(res *ledger.Result) error {
	if p.json {
		return p.encode(accountweb.ToWriteResponse(res))
	}
	tx := res.Transaction
	c := okColor
	if tx.Points < 0 {
		c = warnColor
	}
	c.Fprintf(p.w, "%s %+d", tx.Kind, tx.Points) //nolint:errcheck
	fmt.Fprintf(p.w, " user %d sequence %d\n", tx.UserID, tx.Sequence)
	p.balances(res.Account)
	return nil
}

func (p *printer) account(acct *mileage.Account) error {
	if p.json {
		return p.encode(accountweb.ToAccountDTO(acct))
	}
	labelColor.Fprintf(p.w, "user %d", acct.UserID) //nolint:errcheck
	fmt.Fprintf(p.w, " account %s version %d\n", acct.ID, acct.Version)
	p.balances(acct)
	return nil
}

func (p *printer) balances(acct *mileage.Account) {
	c := okColor
	if acct.Available < 0 {
		c = badColor
	}
	fmt.Fprint(p.w, "  available ")
	c.Fprint(p.w, acct.Available) //nolint:errcheck
	fmt.Fprintf(p.w, "  total %d  used %d\n", acct.Total, acct.Used)
}

func (p *printer) report(userID int64, r mileage.ReplayReport) error {
	if p.json {
		return p.encode(r)
	}
	if r.Consistent {
		okColor.Fprintf(p.w, "user %d consistent\n", userID) //nolint:errcheck
	} else {
		badColor.Fprintf(p.w, "user %d INCONSISTENT\n", userID) //nolint:errcheck
	}
	fmt.Fprintf(p.w, "  transactions %d  replayed %d  stored %d\n", r.Transactions, r.Replayed, r.Stored)
	if r.MismatchSequence != 0 {
		fmt.Fprintf(p.w, "  first mismatch at sequence %d\n", r.MismatchSequence)
	}
	return nil
}

func (p *printer) token(tok string) error {
	if p.json {
		return p.encode(map[string]string{"token": tok})
	}
	_, err := fmt.Fprintln(p.w, tok)
	return err
}
