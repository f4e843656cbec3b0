// Package feed keeps a local, paginated mirror of the posts feed and applies
// likes, comments and new posts to it.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/nfrund/podclient/internal/api"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/nfrund/podclient/internal/notify"
)

// DefaultPageSize is used when New is given a non-positive page size.
const DefaultPageSize = 10

// ErrUnknownPost is returned for post ids that are not in the loaded feed.
var ErrUnknownPost = errors.New("feed: post not loaded")

// Backend is the subset of the API client the feed depends on.
type Backend interface {
	ListPosts(ctx context.Context, q api.PostQuery) (*api.PostPage, error)
	CreatePost(ctx context.Context, req api.CreatePostRequest) (*domain.Post, error)
	DeletePost(ctx context.Context, postID string) error
	LikePost(ctx context.Context, postID string) error
	UnlikePost(ctx context.Context, postID string) error
	AddComment(ctx context.Context, postID, content string) (*domain.Comment, error)
}

// Feed is the view model of one feed, either global or scoped to a pod.
type Feed struct {
	api      Backend
	notifier notify.Notifier
	podID    string
	pageSize int

	mu      sync.Mutex
	posts   []domain.Post
	page    int
	hasMore bool
}

// New creates an empty feed. podID may be empty for the global feed.
func New(backend Backend, notifier notify.Notifier, podID string, pageSize int) *Feed {
	if notifier == nil {
		notifier = notify.Discard
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Feed{
		api:      backend,
		notifier: notifier,
		podID:    podID,
		pageSize: pageSize,
	}
}

// LoadFirst replaces the feed with its first page.
func (f *Feed) LoadFirst(ctx context.Context) error {
	page, err := f.fetch(ctx, 1)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = page.Posts
	f.page = 1
	f.hasMore = page.Pagination.HasMore
	return nil
}

// LoadMore appends the next page. It does nothing when the last page was
// already loaded.
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if f.page > 0 && !f.hasMore {
		f.mu.Unlock()
		return nil
	}
	next := f.page + 1
	f.mu.Unlock()

	page, err := f.fetch(ctx, next)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range page.Posts {
		if f.indexOf(p.ID) < 0 {
			f.posts = append(f.posts, p)
		}
	}
	f.page = next
	f.hasMore = page.Pagination.HasMore
	return nil
}

func (f *Feed) fetch(ctx context.Context, page int) (*api.PostPage, error) {
	out, err := f.api.ListPosts(ctx, api.PostQuery{
		Page:  api.Page{Page: page, Limit: f.pageSize},
		PodID: f.podID,
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to load feed", "event", "feed_load_failed", "page", page, "pod_id", f.podID, "error", err)
		f.report(err)
		return nil, err
	}
	return out, nil
}

// HasMore reports whether another page is available.
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// Posts returns a copy of the loaded posts, newest first.
func (f *Feed) Posts() []domain.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.posts)
}

// Post returns a copy of one loaded post.
func (f *Feed) Post(postID string) (domain.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(postID)
	if i < 0 {
		return domain.Post{}, false
	}
	return f.posts[i], true
}

// ToggleLike flips the caller's like locally, then confirms it with the
// server. The flip is undone if the server call fails.
func (f *Feed) ToggleLike(ctx context.Context, postID string) error {
	f.mu.Lock()
	i := f.indexOf(postID)
	if i < 0 {
		f.mu.Unlock()
		return ErrUnknownPost
	}
	liked := !f.posts[i].LikedByMe
	f.applyLike(i, liked)
	f.mu.Unlock()

	var err error
	if liked {
		err = f.api.LikePost(ctx, postID)
	} else {
		err = f.api.UnlikePost(ctx, postID)
	}
	if err == nil {
		return nil
	}

	f.mu.Lock()
	if i := f.indexOf(postID); i >= 0 && f.posts[i].LikedByMe == liked {
		f.applyLike(i, !liked)
	}
	f.mu.Unlock()

	slog.WarnContext(ctx, "Failed to toggle like", "event", "like_failed", "post_id", postID, "error", err)
	f.report(err)
	return err
}

func (f *Feed) applyLike(i int, liked bool) {
	p := &f.posts[i]
	p.LikedByMe = liked
	if liked {
		p.LikesCount++
	} else if p.LikesCount > 0 {
		p.LikesCount--
	}
}

// AddComment posts a comment and bumps the post's comment count.
func (f *Feed) AddComment(ctx context.Context, postID, text string) (*domain.Comment, error) {
	comment, err := f.api.AddComment(ctx, postID, text)
	if err != nil {
		slog.WarnContext(ctx, "Failed to add comment", "event", "comment_failed", "post_id", postID, "error", err)
		f.report(err)
		return nil, err
	}

	f.mu.Lock()
	if i := f.indexOf(postID); i >= 0 {
		f.posts[i].CommentsCount++
	}
	f.mu.Unlock()
	return comment, nil
}

// CreatePost publishes a post and puts it at the top of the feed.
func (f *Feed) CreatePost(ctx context.Context, content string, media []string) (*domain.Post, error) {
	post, err := f.api.CreatePost(ctx, api.CreatePostRequest{Content: content, PodID: f.podID, Media: media})
	if err != nil {
		slog.WarnContext(ctx, "Failed to create post", "event", "post_create_failed", "error", err)
		f.report(err)
		return nil, err
	}

	f.mu.Lock()
	f.posts = slices.Insert(f.posts, 0, *post)
	f.mu.Unlock()

	f.notifier.Success("Post published")
	return post, nil
}

// DeletePost deletes a post on the server and removes it locally.
func (f *Feed) DeletePost(ctx context.Context, postID string) error {
	if err := f.api.DeletePost(ctx, postID); err != nil {
		slog.WarnContext(ctx, "Failed to delete post", "event", "post_delete_failed", "post_id", postID, "error", err)
		f.report(err)
		return err
	}

	f.mu.Lock()
	f.posts = slices.DeleteFunc(f.posts, func(p domain.Post) bool { return p.ID == postID })
	f.mu.Unlock()
	return nil
}

func (f *Feed) indexOf(postID string) int {
	return slices.IndexFunc(f.posts, func(p domain.Post) bool { return p.ID == postID })
}

func (f *Feed) report(err error) {
	if errors.Is(err, api.ErrSessionExpired) {
		return
	}
	f.notifier.Error(api.Message(err))
}
