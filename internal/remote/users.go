package remote

import (
	"context"
	"fmt"
	"net/http"

	"taskdesk/internal/domain"
)

// UsersClient wraps the /users resource.
type UsersClient struct {
	*Client
}

func NewUsersClient(c *Client) *UsersClient {
	return &UsersClient{Client: c}
}

func (c *UsersClient) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, "list users", http.MethodGet, "users", nil, &users); err != nil {
		return nil, err
	}
	return users, validateAll("list users", users)
}

// ListActive returns only users flagged active.
func (c *UsersClient) ListActive(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, "list active users", http.MethodGet, "users/active", nil, &users); err != nil {
		return nil, err
	}
	return users, validateAll("list active users", users)
}

func (c *UsersClient) Create(ctx context.Context, in domain.UserInput) (domain.User, error) {
	var user domain.User
	if err := c.do(ctx, "create user", http.MethodPost, "users", in, &user); err != nil {
		return domain.User{}, err
	}
	return user, validateOne("create user", user)
}

func (c *UsersClient) Update(ctx context.Context, id int64, in domain.UserInput) (domain.User, error) {
	in.ID = id
	var user domain.User
	if err := c.do(ctx, "update user", http.MethodPut, fmt.Sprintf("users/%d", id), in, &user); err != nil {
		return domain.User{}, err
	}
	return user, validateOne("update user", user)
}

func (c *UsersClient) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete user", http.MethodDelete, fmt.Sprintf("users/%d", id), nil, nil)
}
