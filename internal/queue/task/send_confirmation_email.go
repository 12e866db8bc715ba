package task

import (
	"encoding/json"
	"fmt"

	"github.com/desofme/bank/internal/domain"

	"github.com/hibiken/asynq"
)

const (
	SendConfirmationEmailTaskName  = "sendConfirmationEmailTask"
	SendConfirmationEmailQueueName = "sendConfirmationEmailQueue"

	defaultMaxRetry = 5
)

type SendConfirmationEmail struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Link     string `json:"link"`
}

func NewSendConfirmationEmailTask(email domain.ConfirmationEmail, maxRetry int) (*asynq.Task, error) {
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}

	data := SendConfirmationEmail{
		Email:    email.Email,
		FullName: email.FullName,
		Link:     email.Link,
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("json data marshal failed: %w", err)
	}

	return asynq.NewTask(
		SendConfirmationEmailTaskName,
		payload,
		asynq.MaxRetry(maxRetry),
		asynq.Queue(SendConfirmationEmailQueueName),
	), nil
}

func (t SendConfirmationEmail) ConfirmationEmail() domain.ConfirmationEmail {
	return domain.ConfirmationEmail{
		Email:    t.Email,
		FullName: t.FullName,
		Link:     t.Link,
	}
}
