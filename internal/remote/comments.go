package remote

import (
	"context"
	"fmt"
	"net/http"

	"taskdesk/internal/domain"
)

// CommentsClient wraps the /comments resource.
type CommentsClient struct {
	*Client
}

func NewCommentsClient(c *Client) *CommentsClient {
	return &CommentsClient{Client: c}
}

// ListByTask returns the comment thread of a task.
func (c *CommentsClient) ListByTask(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	var comments []domain.Comment
	if err := c.do(ctx, "list comments", http.MethodGet, fmt.Sprintf("comments/task/%d", taskID), nil, &comments); err != nil {
		return nil, err
	}
	return comments, validateAll("list comments", comments)
}

func (c *CommentsClient) Create(ctx context.Context, in domain.CommentInput) (domain.Comment, error) {
	var comment domain.Comment
	if err := c.do(ctx, "create comment", http.MethodPost, "comments", in, &comment); err != nil {
		return domain.Comment{}, err
	}
	return comment, validateOne("create comment", comment)
}

func (c *CommentsClient) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete comment", http.MethodDelete, fmt.Sprintf("comments/%d", id), nil, nil)
}
