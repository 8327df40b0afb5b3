package main

// Build the routing worker as a Lambda handler for an SQS event source:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"civicfix-backend/internal/bootstrap"
	"civicfix-backend/internal/shared/config"
	"civicfix-backend/internal/shared/metrics"
	"civicfix-backend/internal/shared/telemetry"
	"civicfix-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	reader   workerproc.IssueReader
)

func initApp() {
	cfg := config.Load()
	cfg.QueueBackend = "none"
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	reader = built.IssuesService
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_worker.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return handleBatch(ctx, reader, event), nil
}

// handleBatch reports only retryable failures; malformed or unknown tickets are acknowledged.
func handleBatch(ctx context.Context, r workerproc.IssueReader, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncRoutingMessage("received")
		fields := map[string]any{"sqs_message_id": record.MessageId}

		msg, _, err := workerproc.ParseMessage(record.Body)
		if err == nil {
			fields["ticket_id"] = msg.TicketID
			var routed workerproc.Routed
			routed, err = workerproc.HandleMessage(ctx, r, msg)
			if err == nil {
				fields["department"] = routed.Department
				telemetry.Info("lambda_worker.report.routed", fields)
				metrics.IncRoutingMessage("routed")
				continue
			}
		}

		fields["error"] = err.Error()
		if workerproc.Unrecoverable(err) {
			telemetry.Error("lambda_worker.report.dropped", fields)
			metrics.IncRoutingMessage("dropped")
			continue
		}
		telemetry.Error("lambda_worker.report.failed", fields)
		metrics.IncRoutingMessage("failed")
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
