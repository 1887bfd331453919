package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/safenetai/safebank-client/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email, password and full name and attempts to
// create a new account.
//
// On success it prints the server's confirmation message (the account still
// needs to be verified with the emailed code before login works). The
// password byte slice is securely wiped before returning. Any I/O or service
// error is returned unchanged.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	fullName, err := getSimpleText(a.reader, "Enter full name", os.Stdout)
	if err != nil {
		return err
	}

	msg, err := a.reg.Register(ctx, email, string(password), fullName)
	if err != nil {
		a.log.Error(ctx, "registration failed", "error", err)
		fmt.Println("Registration failed:", err)
		return err
	}

	fmt.Println(msg)
	fmt.Println("Use the 'verify' command once you receive the code.")
	return nil
}

// Verify completes account activation with the code sent after registration.
// On success the returned credential pair is adopted and the user is logged in.
func (a *App) Verify(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	code, err := getSimpleText(a.reader, "Enter verification code", os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.session.VerifyChallenge(ctx, email, code)
	if err != nil {
		a.log.Error(ctx, "verification failed", "error", err)
		fmt.Println("Verification failed:", err)
		return err
	}

	fmt.Printf("Welcome, %s!\n", user.FullName)
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
//
// On success the session manager persists the credential pair, so the session
// survives restarts. The password is securely wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.session.Login(ctx, email, string(password))
	if err != nil {
		a.log.Error(ctx, "login failed", "error", err)
		fmt.Println("Login failed:", err)
		return err
	}

	fmt.Printf("Welcome back, %s!\n", user.FullName)
	return nil
}

// Logout clears the stored credential pair and cached profile. Local only; it
// succeeds even when the server is unreachable.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		a.log.Error(ctx, "logout failed", "error", err)
		return err
	}
	fmt.Println("Logged out.")
	return nil
}
