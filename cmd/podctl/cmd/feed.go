package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/nfrund/podclient/cmd/podctl/internal/format"
	"github.com/nfrund/podclient/internal/app"
	"github.com/nfrund/podclient/internal/feed"
	"github.com/spf13/cobra"
)

// maxLookupPages bounds how far like searches the feed for a post.
const maxLookupPages = 5

var (
	feedPod   string
	feedLimit int
	feedPages int

	likePod string
	postPod string
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the latest posts",
	Example: `  podctl feed
  podctl feed --pod p1 --limit 20 --pages 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			f := feed.New(a.API, a.Notifier, feedPod, feedLimit)
			if err := f.LoadFirst(ctx); err != nil {
				return err
			}
			for i := 1; i < feedPages && f.HasMore(); i++ {
				if err := f.LoadMore(ctx); err != nil {
					return err
				}
			}

			if outputFormat == format.JSON {
				return format.WriteJSON(cmd.OutOrStdout(), f.Posts())
			}
			format.Posts(cmd.OutOrStdout(), f.Posts())
			if f.HasMore() {
				fmt.Fprintln(cmd.OutOrStdout(), "\nMore posts available, use --pages to load them")
			}
			return nil
		})
	},
}

var likeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post, or remove your like if you already liked it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			f := feed.New(a.API, a.Notifier, likePod, feed.DefaultPageSize)
			if err := loadUntil(ctx, f, args[0]); err != nil {
				return err
			}
			if err := f.ToggleLike(ctx, args[0]); err != nil {
				return err
			}
			p, _ := f.Post(args[0])
			verb := "Unliked"
			if p.LikedByMe {
				verb = "Liked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d likes)\n", verb, p.ID, p.LikesCount)
			return nil
		})
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <post-id> <text>...",
	Short: "Comment on a post",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			f := feed.New(a.API, a.Notifier, "", feed.DefaultPageSize)
			c, err := f.AddComment(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comment %s added\n", c.ID)
			return nil
		})
	},
}

var postCmd = &cobra.Command{
	Use:   "post <text>...",
	Short: "Publish a post",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			f := feed.New(a.API, a.Notifier, postPod, feed.DefaultPageSize)
			p, err := f.CreatePost(ctx, strings.Join(args, " "), nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Post %s published\n", p.ID)
			return nil
		})
	},
}

// loadUntil pages through the feed until postID is loaded.
func loadUntil(ctx context.Context, f *feed.Feed, postID string) error {
	if err := f.LoadFirst(ctx); err != nil {
		return err
	}
	for i := 1; ; i++ {
		if _, ok := f.Post(postID); ok {
			return nil
		}
		if !f.HasMore() || i >= maxLookupPages {
			return fmt.Errorf("post %s not found in the first %d pages of the feed", postID, i)
		}
		if err := f.LoadMore(ctx); err != nil {
			return err
		}
	}
}

func init() {
	feedCmd.Flags().StringVar(&feedPod, "pod", "", "Only show posts of this pod")
	feedCmd.Flags().IntVar(&feedLimit, "limit", feed.DefaultPageSize, "Posts per page")
	feedCmd.Flags().IntVar(&feedPages, "pages", 1, "Number of pages to load")

	likeCmd.Flags().StringVar(&likePod, "pod", "", "Pod the post belongs to")
	postCmd.Flags().StringVar(&postPod, "pod", "", "Publish into this pod")

	rootCmd.AddCommand(feedCmd, likeCmd, commentCmd, postCmd)
}
