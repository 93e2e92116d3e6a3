// Package queue publishes persisted assessment results to SQS for
// downstream analytics consumers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"weather2go/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// ResultMessage is the queue payload. It carries the persisted row plus a
// message ID and the request ID that produced it.
type ResultMessage struct {
	MessageID string `json:"message_id"`
	RequestID string `json:"request_id,omitempty"`
	types.PersistedResult
}

// ResultPublisher sends each result to a single queue, once.
type ResultPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewResultPublisher creates a ResultPublisher for queueURL.
func NewResultPublisher(client SQSSender, queueURL string, logger *slog.Logger) *ResultPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Record publishes res. Failures are returned as persistence errors.
func (p *ResultPublisher) Record(ctx context.Context, res types.PersistedResult) error {
	msg := ResultMessage{
		MessageID:       uuid.New().String(),
		RequestID:       types.GetRequestID(ctx),
		PersistedResult: res,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalPersistence, "failed to encode result message", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"risk_level": {
				DataType:    aws.String("String"),
				StringValue: aws.String(res.RiskLevel),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(
			types.ErrCodeInternalPersistence,
			"failed to publish result",
			fmt.Errorf("queue: send to %s: %w", p.queueURL, err),
		)
	}

	p.logger.InfoContext(ctx, "result published",
		"message_id", msg.MessageID,
		"city", res.City,
		"risk_level", res.RiskLevel,
	)
	return nil
}

// Name identifies the sink in logs.
func (p *ResultPublisher) Name() string {
	return "sqs"
}
