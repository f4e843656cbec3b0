package cmd

import (
	"context"
	"fmt"

	"github.com/nfrund/podclient/cmd/podctl/internal/format"
	"github.com/nfrund/podclient/internal/api"
	"github.com/nfrund/podclient/internal/app"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/spf13/cobra"
)

var (
	podsType   string
	podsSearch string
	podsPage   int

	podDraft domain.PodDraft
)

var podsCmd = &cobra.Command{
	Use:   "pods",
	Short: "Browse, join and leave pods",
}

var podsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the pod directory",
	Example: `  podctl pods list
  podctl pods list --type vc --search fintech --page 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			pods, err := a.API.ListPods(ctx, api.PodQuery{
				Page:   api.Page{Page: podsPage},
				Type:   domain.PodType(podsType),
				Search: podsSearch,
			})
			if err != nil {
				return err
			}
			return printPods(cmd, a, pods)
		})
	},
}

var podsJoinedCmd = &cobra.Command{
	Use:   "joined",
	Short: "List the pods you joined",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			return printPods(cmd, a, a.Session.JoinedPods())
		})
	},
}

var podsJoinCmd = &cobra.Command{
	Use:   "join <pod-id>",
	Short: "Join a pod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			if a.Session.IsJoined(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "Already a member of %s\n", args[0])
				return nil
			}
			return a.Session.JoinPod(ctx, domain.Pod{ID: args[0]})
		})
	},
}

var podsLeaveCmd = &cobra.Command{
	Use:   "leave <pod-id>",
	Short: "Leave a pod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			return a.Session.LeavePod(ctx, args[0])
		})
	},
}

var podsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a pod you own",
	Example: `  podctl pods create --name "Seed Labs" --type incubator --website https://seedlabs.example`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			a.Session.SetPendingPodOwnerDraft(podDraft)
			draft, _ := a.Session.PendingPodOwnerDraft()

			pod, err := a.API.CreatePod(ctx, api.CreatePodRequestFromDraft(draft))
			if err != nil {
				a.Notifier.Error(api.Message(err))
				return err
			}
			a.Session.ClearPendingPodOwnerDraft()
			a.Notifier.Success("Pod created")

			if err := a.Session.RefreshUser(ctx); err != nil {
				return err
			}
			return printPods(cmd, a, []domain.Pod{*pod})
		})
	},
}

func printPods(cmd *cobra.Command, a *app.App, pods []domain.Pod) error {
	if outputFormat == format.JSON {
		return format.WriteJSON(cmd.OutOrStdout(), pods)
	}
	format.Pods(cmd.OutOrStdout(), pods, a.Session.IsJoined)
	return nil
}

func init() {
	podsListCmd.Flags().StringVar(&podsType, "type", "", "Filter by pod type (incubator, vc, accelerator, community)")
	podsListCmd.Flags().StringVar(&podsSearch, "search", "", "Search pod names")
	podsListCmd.Flags().IntVar(&podsPage, "page", 0, "Page number")

	podsCreateCmd.Flags().StringVar(&podDraft.Name, "name", "", "Pod name")
	podsCreateCmd.Flags().StringVar((*string)(&podDraft.Type), "type", "", "Pod type (incubator, vc, accelerator, community)")
	podsCreateCmd.Flags().StringVar(&podDraft.Description, "description", "", "Short description")
	podsCreateCmd.Flags().StringVar(&podDraft.Website, "website", "", "Website URL")
	podsCreateCmd.Flags().StringVar(&podDraft.Logo, "logo", "", "Logo URL")

	podsCmd.AddCommand(podsListCmd, podsJoinedCmd, podsJoinCmd, podsLeaveCmd, podsCreateCmd)
	rootCmd.AddCommand(podsCmd)
}
