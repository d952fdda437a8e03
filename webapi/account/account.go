// Package account exposes the mileage ledger over HTTP.
package account

import (
	"fmt"
	"strconv"

	"github.com/amirasaad/mileage/pkg/app"
	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/middleware"
	"github.com/amirasaad/mileage/webapi/common"
	"github.com/gofiber/fiber/v2"
)

const defaultLeaderboardSize = 10

// Routes registers the mileage endpoints. Every route requires a verified JWT.
//
// Routes:
//   - GET  /mileage/accounts/:userId               : account snapshot (self or staff)
//   - GET  /mileage/accounts/:userId/transactions  : the user's transactions (self or staff)
//   - GET  /mileage/accounts/:userId/rank          : rank by available or total (self or staff)
//   - GET  /mileage/accounts/:userId/verify        : replay check (staff)
//   - POST /mileage/accounts/:userId/earn          : credit points (staff)
//   - POST /mileage/accounts/:userId/use           : debit spent points (self or staff)
//   - POST /mileage/accounts/:userId/expire        : expire points (admin)
//   - POST /mileage/accounts/:userId/adjust        : signed correction (admin)
//   - GET  /mileage/transactions                   : filtered listing (staff)
//   - GET  /mileage/totals                         : aggregate sums (staff)
//   - GET  /mileage/leaderboard                    : top accounts (staff)
func Routes(router fiber.Router, a *app.App) {
	g := router.Group("/mileage", middleware.JwtProtected(a.Config.Auth.Jwt))

	self := middleware.RequireSelfOrRole("userId", middleware.RoleStaff)
	staff := middleware.RequireRole(middleware.RoleStaff)
	admin := middleware.RequireRole(middleware.RoleAdmin)

	g.Get("/accounts/:userId", self, GetAccount(a))
	g.Get("/accounts/:userId/transactions", self, ListAccountTransactions(a))
	g.Get("/accounts/:userId/rank", self, GetRank(a))
	g.Get("/accounts/:userId/verify", staff, Verify(a))
	g.Post("/accounts/:userId/earn", staff, Earn(a))
	g.Post("/accounts/:userId/use", self, Use(a))
	g.Post("/accounts/:userId/expire", admin, Expire(a))
	g.Post("/accounts/:userId/adjust", admin, Adjust(a))
	g.Get("/transactions", staff, ListTransactions(a))
	g.Get("/totals", staff, Totals(a))
	g.Get("/leaderboard", staff, Leaderboard(a))
}

// GetAccount returns the account snapshot of a user.
func GetAccount(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := userIDParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		acct, err := a.Ledger.GetAccount(c.UserContext(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", ToAccountDTO(acct))
	}
}

// ListAccountTransactions lists one user's transactions with optional kind and period filters.
func ListAccountTransactions(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := userIDParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		q, err := common.BindQuery[TransactionQuery](c)
		if q == nil {
			return err
		}
		f, err := q.filter()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid query", err)
		}
		f.UserID = &userID

		txs, err := a.Ledger.Transactions(c.UserContext(), f)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transactions", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", ToTransactionDTOs(txs))
	}
}

// GetRank places a user's account against all accounts.
func GetRank(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := userIDParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		q, err := common.BindQuery[RankQuery](c)
		if q == nil {
			return err
		}
		by, err := q.field()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid query", err)
		}
		rank, err := a.Ledger.Rank(c.UserContext(), userID, by)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to rank account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rank fetched", rank)
	}
}

// Verify replays a user's history against the stored snapshot.
func Verify(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := userIDParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		report, err := a.Ledger.Verify(c.UserContext(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to verify account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account verified", report)
	}
}

// Earn credits points to a user.
func Earn(a *app.App) fiber.Handler {
	return sourcedWrite(a, mileage.KindEarn, "Points earned")
}

// Use debits points a user spent.
func Use(a *app.App) fiber.Handler {
	return sourcedWrite(a, mileage.KindUse, "Points used")
}

func sourcedWrite(a *app.App, kind mileage.Kind, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := userIDParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		input, err := common.BindAndValidate[EarnRequest](c)
		if input == nil {
			return err // error response already written
		}
		return write(c, a, app.WriteRequest{
			Kind:        kind,
			UserID:      userID,
			Points:      input.Points,
			Source:      mileage.Source{Type: input.SourceType, ID: input.SourceID},
			Description: input.Description,
		}, message)
	}
}

// Expire removes lapsed points from a user's balance.
func Expire(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := userIDParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		input, err := common.BindAndValidate[ExpireRequest](c)
		if input == nil {
			return err
		}
		return write(c, a, app.WriteRequest{
			Kind:        mileage.KindExpire,
			UserID:      userID,
			Points:      input.Points,
			Description: input.Description,
		}, "Points expired")
	}
}

// Adjust applies a signed correction to a user's balance.
func Adjust(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := userIDParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", err)
		}
		input, err := common.BindAndValidate[AdjustRequest](c)
		if input == nil {
			return err
		}
		return write(c, a, app.WriteRequest{
			Kind:        mileage.KindAdjust,
			UserID:      userID,
			Points:      input.Points,
			Description: input.Description,
		}, "Points adjusted")
	}
}

func write(c *fiber.Ctx, a *app.App, req app.WriteRequest, message string) error {
	res, err := a.Write(c.UserContext(), req)
	if err != nil {
		return common.ProblemDetailsJSON(c, fmt.Sprintf("Failed to %s points", kindVerb(req.Kind)), err)
	}
	return common.SuccessResponseJSON(c, fiber.StatusCreated, message, ToWriteResponse(res))
}

// ListTransactions lists transactions across users.
func ListTransactions(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := common.BindQuery[TransactionQuery](c)
		if q == nil {
			return err
		}
		f, err := q.filter()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid query", err)
		}
		txs, err := a.Ledger.Transactions(c.UserContext(), f)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transactions", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", ToTransactionDTOs(txs))
	}
}

// Totals sums earned, used, expired and adjusted points.
func Totals(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := common.BindQuery[TotalsQuery](c)
		if q == nil {
			return err
		}
		f, err := q.filter()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid query", err)
		}
		totals, err := a.Ledger.Totals(c.UserContext(), f)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to compute totals", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Totals fetched", fiber.Map{
			"earned":       totals.Earned,
			"used":         totals.Used,
			"expired":      totals.Expired,
			"adjusted":     totals.Adjusted,
			"net":          totals.Net(),
			"transactions": totals.Transactions,
		})
	}
}

// Leaderboard returns the top accounts by available or total points.
func Leaderboard(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := common.BindQuery[RankQuery](c)
		if q == nil {
			return err
		}
		by, err := q.field()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid query", err)
		}
		limit := q.Limit
		if limit == 0 {
			limit = defaultLeaderboardSize
		}
		accts, err := a.Ledger.Leaderboard(c.UserContext(), by, limit)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to build leaderboard", err)
		}
		entries := make([]LeaderboardEntry, 0, len(accts))
		for i, acct := range accts {
			entries = append(entries, LeaderboardEntry{
				Position:  i + 1,
				UserID:    acct.UserID,
				Available: acct.Available,
				Total:     acct.Total,
			})
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Leaderboard fetched", entries)
	}
}

func userIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: user id must be a positive integer", domain.ErrValidation)
	}
	return id, nil
}

func kindVerb(k mileage.Kind) string {
	switch k {
	case mileage.KindEarn:
		return "earn"
	case mileage.KindUse:
		return "use"
	case mileage.KindExpire:
		return "expire"
	}
	return "adjust"
}
