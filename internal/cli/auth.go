package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pulse/internal/cli/style"
	"pulse/internal/domain"
)

func init() {
	rootCmd.AddCommand(authCmd, userCmd)
	authCmd.AddCommand(authSignInCmd, authGuestCmd, authSignOutCmd, authWhoAmICmd)
	userCmd.AddCommand(userMeCmd, userRegisterDeviceCmd)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in and out",
}

var authSignInCmd = &cobra.Command{
	Use:   "signin <user-id>",
	Short: "Sign in with an existing user id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := a.identity.SignIn(ctx, args[0]); err != nil {
			return err
		}
		printSignedIn(cmd.OutOrStdout(), a)
		return nil
	},
}

var authGuestCmd = &cobra.Command{
	Use:   "guest",
	Short: "Sign in with a new guest id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		if _, err := a.identity.SignInAsGuest(ctx); err != nil {
			return err
		}
		printSignedIn(cmd.OutOrStdout(), a)
		return nil
	},
}

func printSignedIn(w io.Writer, a *app) {
	id, _ := a.identity.UserID()
	fmt.Fprintf(w, "%s signed in as %s\n", style.DotHealthy, style.Bold.Render(id))
	if user, ok := a.identity.CurrentUser(); ok {
		printUser(w, user)
	} else {
		fmt.Fprintln(w, style.DimText.Render("  profile not available yet"))
	}
}

var authSignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Forget the stored user and device token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.identity.SignOut(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), style.DimText.Render("signed out"))
		return nil
	},
}

var authWhoAmICmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		w := cmd.OutOrStdout()
		if !a.identity.IsAuthenticated() {
			fmt.Fprintln(w, style.DimText.Render("not signed in"))
			return nil
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		a.identity.RefreshProfile(ctx)
		printSignedIn(w, a)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Backend user profile",
}

var userMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Fetch the current user's profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		user, err := a.repos.Users.Me(ctx)
		if err != nil {
			return err
		}
		printUser(cmd.OutOrStdout(), user)
		return nil
	},
}

var userRegisterDeviceCmd = &cobra.Command{
	Use:   "register-device <token>",
	Short: "Store a push token and register it with the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		a.identity.RegisterDeviceToken(ctx, args[0])
		fmt.Fprintln(cmd.OutOrStdout(), style.DimText.Render("device token submitted"))
		return nil
	},
}

func printUser(w io.Writer, u domain.User) {
	fmt.Fprintln(w, style.KV("id", u.ID))
	if u.Email != "" {
		fmt.Fprintln(w, style.KV("email", u.Email))
	}
	sub := u.SubscriptionStatus
	if u.SubscriptionExpiresAt != nil {
		sub += style.DimText.Render(" until " + u.SubscriptionExpiresAt.Local().Format("Jan 02 2006"))
	}
	fmt.Fprintln(w, style.KV("subscription", sub))
	if u.EndpointCount != nil {
		fmt.Fprintln(w, style.KV("endpoints", fmt.Sprint(*u.EndpointCount)))
	}
	if !u.CreatedAt.IsZero() {
		fmt.Fprintln(w, style.KV("member since", u.CreatedAt.Local().Format(time.RFC1123)))
	}
	if u.IsGuest() {
		fmt.Fprintln(w, style.KV("account", style.Warning.Render("guest")))
	}
}
