package client

import (
	"context"
	"fmt"

	"github.com/desofme/bank/internal/domain"
	"github.com/desofme/bank/internal/queue/task"

	"github.com/hibiken/asynq"
)

// Enqueuer is the subset of *asynq.Client used to hand tasks to the worker server.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client queues confirmation emails for the asynq worker server.
type Client struct {
	enqueuer Enqueuer
	maxRetry int
}

func New(enqueuer Enqueuer, maxRetry int) *Client {
	return &Client{
		enqueuer: enqueuer,
		maxRetry: maxRetry,
	}
}

func (c *Client) NotifyConfirmation(ctx context.Context, email domain.ConfirmationEmail) error {
	t, err := task.NewSendConfirmationEmailTask(email, c.maxRetry)
	if err != nil {
		return fmt.Errorf("new send confirmation email task failed: %w", err)
	}

	if _, err := c.enqueuer.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("enqueue send confirmation email task failed: %w", err)
	}

	return nil
}
