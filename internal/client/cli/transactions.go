package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/safenetai/safebank-client/internal/client/api"
	"github.com/safenetai/safebank-client/internal/client/models"
	"github.com/safenetai/safebank-client/internal/client/otp"
	"github.com/safenetai/safebank-client/internal/client/services"
)

// Send collects transaction details, submits them and reacts to the server's
// verdict. A transaction held for OTP verification drops the user into an
// interactive challenge loop until it resolves or is abandoned.
func (a *App) Send(ctx context.Context) error {
	typ, err := getSimpleText(a.reader, "Enter type (deposit, withdraw, transfer)", os.Stdout)
	if err != nil {
		return err
	}

	amountStr, err := getSimpleText(a.reader, "Enter amount, e.g. 125.50", os.Stdout)
	if err != nil {
		return err
	}
	amount, err := ParseAmount(amountStr)
	if err != nil {
		fmt.Println(err)
		return err
	}

	req := &models.TransactionRequest{Amount: amount, Type: models.TransactionType(typ)}

	if req.Type == models.TypeTransfer {
		req.CounterpartyAccount, err = getSimpleText(a.reader, "Enter counterparty account", os.Stdout)
		if err != nil {
			return err
		}
	}

	verdict, err := a.tx.Submit(ctx, req)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			fmt.Println(verr)
		case errors.Is(err, services.ErrSubmissionInFlight):
			fmt.Println("Finish or cancel the current verification first.")
		default:
			a.log.Error(ctx, "submission failed", "error", err)
			fmt.Println("Submission failed:", err)
		}
		return err
	}

	switch v := verdict.(type) {
	case models.Completed:
		fmt.Printf("Transaction %s completed (risk score %d).\n", v.TransactionID, v.RiskScore)
		return nil

	case models.PendingReview:
		fmt.Printf("Transaction %s is held for manual review (risk score %d).\n", v.TransactionID, v.RiskScore)
		fmt.Println("You will see the outcome in 'history'; nothing else to do now.")
		return nil

	case models.RequiresOTP:
		if v.DistanceViolation {
			fmt.Println("Unusual location detected; verification is required to proceed.")
		} else {
			fmt.Println("This transaction needs verification to proceed.")
		}
		return a.driveChallenge(ctx, a.tx.Challenge())

	default:
		return fmt.Errorf("unhandled verdict %T", verdict)
	}
}

// driveChallenge runs the interactive OTP loop for a held transaction:
// enter the code, or type "resend" once the code ran out, or "cancel" to
// abandon the wait.
func (a *App) driveChallenge(ctx context.Context, ch *otp.Challenge) error {
	fmt.Println("A 6-digit code was sent to you. Type it below, or 'cancel' to abandon.")

	for {
		switch ch.State() {
		case otp.StateVerified, otp.StateCancelled:
			return nil
		}

		input, err := getSimpleText(a.reader,
			fmt.Sprintf("Code [%s left] ('resend', 'cancel')", ch.FormatRemaining()), os.Stdout)
		if err != nil {
			ch.Cancel()
			return err
		}

		switch input {
		case "cancel":
			ch.Cancel()
			fmt.Println("Verification abandoned. Check 'history' for the transaction's fate.")
			return nil

		case "resend":
			switch err := ch.Resend(ctx); {
			case err == nil:
				fmt.Println("A new code is on its way.")
			case errors.Is(err, otp.ErrCodeLive):
				fmt.Printf("The current code is still valid for %s.\n", ch.FormatRemaining())
			case errors.Is(err, otp.ErrCancelled):
				return nil
			default:
				fmt.Println("Resend failed:", err)
			}

		default:
			result, err := ch.SubmitCode(ctx, input)
			if err == nil {
				fmt.Printf("Verified! Transaction %s completed, amount %s.\n",
					result.TransactionID, FormatAmount(result.Amount))
				return nil
			}

			var rejected *api.OTPRejectedError
			switch {
			case errors.As(err, &rejected):
				fmt.Println(rejected.Message)
				if rejected.Reason == api.OTPReasonExpired {
					fmt.Println("Type 'resend' to request a fresh code.")
				}
			case errors.Is(err, otp.ErrCodeFormat):
				fmt.Println("The code must be exactly 6 digits.")
			case errors.Is(err, otp.ErrExpired):
				fmt.Println("The code has run out. Type 'resend' for a fresh one, or 'cancel'.")
			case errors.Is(err, otp.ErrCancelled):
				return nil
			default:
				fmt.Println("Verification failed:", err)
			}
		}
	}
}

// History lists the user's transactions.
func (a *App) History(ctx context.Context) error {
	items, err := a.tx.History(ctx)
	if err != nil {
		a.log.Error(ctx, "history failed", "error", err)
		fmt.Println("Could not load history:", err)
		return err
	}

	if len(items) == 0 {
		fmt.Println("No transactions yet.")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%s  %-9s %10s  %-14s risk %d  %s\n",
			item.CreatedAt.Format("2006-01-02 15:04"),
			item.Type, FormatAmount(item.Amount), item.Status, item.RiskScore, item.ID)
	}
	return nil
}

// Alerts lists fraud alerts raised against the user's own transactions.
func (a *App) Alerts(ctx context.Context) error {
	items, err := a.tx.Alerts(ctx)
	if err != nil {
		a.log.Error(ctx, "alerts failed", "error", err)
		fmt.Println("Could not load alerts:", err)
		return err
	}

	if len(items) == 0 {
		fmt.Println("No fraud alerts.")
		return nil
	}
	for _, al := range items {
		fmt.Printf("%s  [%s] transaction %s  risk %d  %s\n",
			al.CreatedAt.Format("2006-01-02 15:04"),
			al.Level, al.TransactionID, al.RiskScore, al.Status)
	}
	return nil
}

// Profile fetches and displays the account details, refreshing the cached
// copy held by the session.
func (a *App) Profile(ctx context.Context) error {
	user, err := a.tx.Profile(ctx)
	if err != nil {
		a.log.Error(ctx, "profile failed", "error", err)
		fmt.Println("Could not load profile:", err)
		return err
	}

	if err := a.session.UpdateUser(ctx, user); err != nil {
		a.log.Warn(ctx, "could not cache profile", "error", err)
	}

	fmt.Printf("%s <%s>\n", user.FullName, user.Email)
	fmt.Printf("Account: %s\n", user.AccountNumber)
	fmt.Printf("Balance: %s\n", FormatAmount(user.Balance))
	return nil
}
