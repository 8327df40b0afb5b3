package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"civicfix-backend/internal/issues"
	"civicfix-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type failingReader struct{}

func (failingReader) Get(ctx context.Context, id string) (issues.Issue, error) {
	return issues.Issue{}, errors.New("db down")
}

func sqsMessage(t *testing.T, id string, m queue.Message) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func seededIssues() *issues.Service {
	return issues.NewService(issues.NewSeededMemoryRepo(time.Now()), "CFX")
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	msg := sqsMessage(t, "m1", queue.Message{TicketID: "CFX-2847", RequestID: "req-1", Version: queue.MessageVersion})

	handleMessage(context.Background(), seededIssues(), client, "queue", msg)

	if len(client.deleted) != 1 || client.deleted[0] != "r-m1" {
		t.Fatalf("expected delete of r-m1, got %v", client.deleted)
	}
}

func TestWorkerKeepsMessageOnTransientFailure(t *testing.T) {
	client := &fakeSQS{}
	msg := sqsMessage(t, "m2", queue.Message{TicketID: "CFX-2847", Version: queue.MessageVersion})

	handleMessage(context.Background(), failingReader{}, client, "queue", msg)

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDropsUnknownTicket(t *testing.T) {
	client := &fakeSQS{}
	msg := sqsMessage(t, "m3", queue.Message{TicketID: "CFX-1", Version: queue.MessageVersion})

	handleMessage(context.Background(), seededIssues(), client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), seededIssues(), client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestReceiveCount(t *testing.T) {
	if n := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
	if n := receiveCount(sqstypes.Message{}); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}
