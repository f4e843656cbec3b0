package api

import (
	"context"
	"net/url"

	"github.com/nfrund/podclient/internal/domain"
)

// PostQuery selects a page of the feed, optionally scoped to one pod.
type PostQuery struct {
	Page
	PodID string
}

// PostPage is one page of the feed.
type PostPage struct {
	Posts      []domain.Post     `json:"posts"`
	Pagination domain.Pagination `json:"pagination"`
}

// CreatePostRequest publishes a post.
type CreatePostRequest struct {
	Content string   `json:"content" validate:"required"`
	PodID   string   `json:"podId,omitempty"`
	Media   []string `json:"media,omitempty"`
}

// ListPosts returns a page of the feed.
func (c *Client) ListPosts(ctx context.Context, q PostQuery) (*PostPage, error) {
	v := q.values()
	if q.PodID != "" {
		v.Set("podId", q.PodID)
	}
	var out PostPage
	if err := c.get(ctx, "/api/posts", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost publishes a post.
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) (*domain.Post, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Post domain.Post `json:"post"`
	}
	if err := c.post(ctx, "/api/posts", req, &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

// DeletePost removes one of the caller's posts.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.delete(ctx, postPath(postID), nil)
}

// LikePost likes a post.
func (c *Client) LikePost(ctx context.Context, postID string) error {
	return c.post(ctx, postPath(postID)+"/like", nil, nil)
}

// UnlikePost withdraws a like.
func (c *Client) UnlikePost(ctx context.Context, postID string) error {
	return c.delete(ctx, postPath(postID)+"/like", nil)
}

// ListComments returns the comments of a post.
func (c *Client) ListComments(ctx context.Context, postID string, page Page) ([]domain.Comment, error) {
	var out struct {
		Comments []domain.Comment `json:"comments"`
	}
	if err := c.get(ctx, postPath(postID)+"/comments", page.values(), &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

// AddComment comments on a post.
func (c *Client) AddComment(ctx context.Context, postID, content string) (*domain.Comment, error) {
	req := struct {
		Content string `json:"content" validate:"required"`
	}{Content: content}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Comment domain.Comment `json:"comment"`
	}
	if err := c.post(ctx, postPath(postID)+"/comments", req, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.delete(ctx, "/api/comments/"+url.PathEscape(commentID), nil)
}

// React sets the caller's reaction on a post.
func (c *Client) React(ctx context.Context, postID, reaction string) (*domain.Reaction, error) {
	req := struct {
		PostID string `json:"postId" validate:"required"`
		Type   string `json:"type" validate:"required"`
	}{PostID: postID, Type: reaction}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Reaction domain.Reaction `json:"reaction"`
	}
	if err := c.post(ctx, "/api/reactions", req, &out); err != nil {
		return nil, err
	}
	return &out.Reaction, nil
}

func postPath(postID string) string {
	return "/api/posts/" + url.PathEscape(postID)
}
