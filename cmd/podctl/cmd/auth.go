package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/podclient/cmd/podctl/internal/format"
	"github.com/nfrund/podclient/internal/api"
	"github.com/nfrund/podclient/internal/app"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/nfrund/podclient/internal/tokenstore"
	"github.com/spf13/cobra"
)

var (
	loginPassword string

	signupName         string
	signupEmail        string
	signupPassword     string
	signupUsername     string
	signupOrganisation string
	signupDesignation  string
	signupRole         string
)

var loginCmd = &cobra.Command{
	Use:   "login <email-or-username>",
	Short: "Sign in and save the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Session.Login(ctx, args[0], loginPassword); err != nil {
				return err
			}
			user, _ := a.Session.CurrentUser()
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%d joined pods)\n", displayName(user), len(a.Session.JoinedPods()))
			return nil
		})
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Example: `  podctl signup --name "Ann Lee" --email ann@example.com --password s3cretpass
  podctl signup --name "Ann Lee" --email ann@example.com --password s3cretpass --role pod_owner`,
	RunE: func(cmd *cobra.Command, args []string) error {
		role := domain.Role(signupRole)
		if role != "" && !role.Valid() {
			return fmt.Errorf("unknown role %q, use user or pod_owner", signupRole)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			a.Session.SetSelectedRole(role)
			err := a.Session.Signup(ctx, api.SignupRequest{
				FullName:     signupName,
				Email:        signupEmail,
				Password:     signupPassword,
				Username:     signupUsername,
				Organisation: signupOrganisation,
				Designation:  signupDesignation,
			})
			if err != nil {
				return err
			}
			user, _ := a.Session.CurrentUser()
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", displayName(user))
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the saved token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			a.Session.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			user, _ := a.Session.CurrentUser()
			pods := a.Session.JoinedPods()

			if outputFormat == format.JSON {
				return format.WriteJSON(cmd.OutOrStdout(), map[string]any{"user": user, "pods": pods})
			}

			var expires time.Time
			if claims, err := tokenstore.Inspect(a.Session.Token()); err == nil {
				expires = claims.ExpiresAt
			}
			format.User(cmd.OutOrStdout(), user, len(pods), expires)
			return nil
		})
	},
}

func displayName(u domain.User) string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

func init() {
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password")
	_ = loginCmd.MarkFlagRequired("password")

	signupCmd.Flags().StringVar(&signupName, "name", "", "Full name")
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "Email address")
	signupCmd.Flags().StringVarP(&signupPassword, "password", "p", "", "Password, at least 8 characters")
	signupCmd.Flags().StringVar(&signupUsername, "username", "", "Username")
	signupCmd.Flags().StringVar(&signupOrganisation, "organisation", "", "Organisation")
	signupCmd.Flags().StringVar(&signupDesignation, "designation", "", "Designation, e.g. CEO")
	signupCmd.Flags().StringVar(&signupRole, "role", "", "Account role (user, pod_owner)")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)
}
