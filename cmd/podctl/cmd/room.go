package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/nfrund/podclient/cmd/podctl/internal/format"
	"github.com/nfrund/podclient/internal/app"
	"github.com/nfrund/podclient/internal/chat"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/nfrund/podclient/internal/realtime"
	"github.com/spf13/cobra"
)

var (
	roomsPod    string
	sendTimeout time.Duration
)

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Chat in pod rooms",
}

var roomListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rooms, err := a.API.ListRooms(ctx, roomsPod)
			if err != nil {
				return err
			}
			if outputFormat == format.JSON {
				return format.WriteJSON(cmd.OutOrStdout(), rooms)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer tw.Flush()
			fmt.Fprintln(tw, "ID\tNAME\tPOD\tDESCRIPTION")
			for _, r := range rooms {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.PodID, format.Truncate(r.Description, 40))
			}
			return nil
		})
	},
}

var roomTailCmd = &cobra.Command{
	Use:   "tail <room-id>",
	Short: "Print a room's history and follow new messages until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			out := cmd.OutOrStdout()
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tl := &timeline{out: out}
			room, conn, err := openRoom(ctx, a, args[0], chat.WithMessageHook(func(domain.RoomMessage) {
				tl.flush()
			}))
			if err != nil {
				return err
			}
			defer room.Close()
			tl.attach(room)

			notes, err := a.Realtime.OnNotification(func(n realtime.Notification) {
				a.Notifier.Success(n.Message)
			})
			if err != nil {
				return err
			}
			defer a.Realtime.Off(notes)

			select {
			case <-ctx.Done():
				return nil
			case <-conn.Done():
				return fmt.Errorf("realtime connection lost after %d attempts", conn.Attempts())
			}
		})
	},
}

var roomSendCmd = &cobra.Command{
	Use:   "send <room-id> <text>...",
	Short: "Send a message to a room",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			text := strings.Join(args[1:], " ")
			delivered := make(chan struct{}, 1)
			room, _, err := openRoom(ctx, a, args[0], chat.WithMessageHook(func(m domain.RoomMessage) {
				if m.Content == text {
					select {
					case delivered <- struct{}{}:
					default:
					}
				}
			}))
			if err != nil {
				return err
			}
			defer room.Close()

			if err := room.Send(text); err != nil {
				return err
			}
			select {
			case <-delivered:
				fmt.Fprintln(cmd.OutOrStdout(), "Sent")
				return nil
			case <-time.After(sendTimeout):
				return fmt.Errorf("message not confirmed by the server within %s", sendTimeout)
			}
		})
	},
}

type messageSource interface {
	Messages() []domain.RoomMessage
}

// timeline prints a room's messages in order. Messages that arrive before a
// room is attached are held back until the history has been printed.
type timeline struct {
	mu      sync.Mutex
	out     io.Writer
	source  messageSource
	printed int
}

func (t *timeline) attach(source messageSource) {
	t.mu.Lock()
	t.source = source
	t.mu.Unlock()
	t.flush()
}

// flush prints the messages not printed yet.
func (t *timeline) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.source == nil {
		return
	}
	msgs := t.source.Messages()
	for _, m := range msgs[t.printed:] {
		format.Message(t.out, m)
	}
	t.printed = len(msgs)
}

// openRoom connects the realtime channel and opens a room timeline on it.
func openRoom(ctx context.Context, a *app.App, roomID string, opts ...chat.Option) (*chat.Room, *realtime.Conn, error) {
	if err := requireLogin(a); err != nil {
		return nil, nil, err
	}
	conn, err := a.Realtime.Connect()
	if err != nil {
		return nil, nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, a.Config.Realtime.DialTimeout*time.Duration(a.Config.Realtime.MaxRetries))
	defer cancel()
	if err := conn.WaitConnected(waitCtx); err != nil {
		return nil, nil, fmt.Errorf("connect to realtime channel: %w", err)
	}

	room := chat.New(roomID, a.API, a.Realtime, opts...)
	if err := room.Open(ctx); err != nil {
		return nil, nil, err
	}
	return room, conn, nil
}

func init() {
	roomListCmd.Flags().StringVar(&roomsPod, "pod", "", "Only list rooms of this pod")
	roomSendCmd.Flags().DurationVar(&sendTimeout, "timeout", 5*time.Second, "How long to wait for the server to echo the message")

	roomCmd.AddCommand(roomListCmd, roomTailCmd, roomSendCmd)
	rootCmd.AddCommand(roomCmd)
}
