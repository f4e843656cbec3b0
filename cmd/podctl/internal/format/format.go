// Package format renders podctl output as tables or JSON.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nfrund/podclient/internal/domain"
)

// Output formats accepted by --format.
const (
	Table = "table"
	JSON  = "json"
)

// Valid reports whether f is a supported output format.
func Valid(f string) bool {
	return f == Table || f == JSON
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Pods writes pods as a table. Joined pods are marked with an asterisk.
func Pods(w io.Writer, pods []domain.Pod, joined func(id string) bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tMEMBERS\tJOINED")
	fmt.Fprintln(tw, "--\t----\t----\t-------\t------")
	if len(pods) == 0 {
		fmt.Fprintln(tw, "No pods found")
		return
	}
	for _, p := range pods {
		mark := ""
		if joined != nil && joined(p.ID) {
			mark = "*"
		}
		name := p.Name
		if p.IsVerified {
			name += " ✓"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, Truncate(name, 30), p.Type, len(p.Members), mark)
	}
}

// Posts writes posts as a table.
func Posts(w io.Writer, posts []domain.Post) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tAUTHOR\tLIKES\tCOMMENTS\tPOSTED\tCONTENT")
	fmt.Fprintln(tw, "--\t------\t-----\t--------\t------\t-------")
	if len(posts) == 0 {
		fmt.Fprintln(tw, "No posts yet")
		return
	}
	for _, p := range posts {
		likes := strconv.Itoa(p.LikesCount)
		if p.LikedByMe {
			likes += " ♥"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			p.ID,
			Truncate(p.Author.DisplayName(), 20),
			likes,
			p.CommentsCount,
			Date(p.CreatedAt),
			Truncate(oneLine(p.Content), 50))
	}
}

// Message writes one room message as a single line.
func Message(w io.Writer, m domain.RoomMessage) {
	ts := "--:--"
	if !m.CreatedAt.IsZero() {
		ts = m.CreatedAt.Local().Format("15:04")
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", ts, m.Sender.DisplayName(), oneLine(m.Content))
}

// User writes the profile of the signed-in user.
func User(w io.Writer, u domain.User, pods int, expires time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s\t%s\n", k, v)
		}
	}
	row("ID", u.ID)
	row("Name", u.FullName)
	row("Username", u.Username)
	row("Email", u.Email)
	row("Role", u.Role.Label())
	row("Organisation", u.Organisation)
	row("Designation", u.Designation)
	row("Member since", Date(u.CreatedAt))
	row("Joined pods", strconv.Itoa(pods))
	if !expires.IsZero() {
		row("Token expires", expires.Local().Format(time.RFC1123))
	}
}

// Date formats a timestamp as a calendar date, or "-" when unset.
func Date(ts domain.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(time.DateOnly)
}

// Truncate shortens s to at most max runes, ending with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
