package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

// SQSQueue implements Queue on top of aws-sdk-go. The queue URL is resolved
// on first use and cached for the lifetime of the value.
type SQSQueue struct {
	name   string
	client sqsiface.SQSAPI

	mu  sync.Mutex
	url string
}

// NewSQSQueue binds a queue name to a shared SQS client.
func NewSQSQueue(client sqsiface.SQSAPI, name string) *SQSQueue {
	return &SQSQueue{name: name, client: client}
}

// Name returns the queue name.
func (q *SQSQueue) Name() string { return q.name }

// URL resolves the queue URL, caching it after the first success.
func (q *SQSQueue) URL(ctx context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.url != "" {
		return q.url, nil
	}

	out, err := q.client.GetQueueUrlWithContext(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(q.name)})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == sqs.ErrCodeQueueDoesNotExist {
			return "", fmt.Errorf("%s: %w", q.name, ErrQueueNotFound)
		}
		return "", fmt.Errorf("resolve queue %s: %w", q.name, err)
	}
	q.url = aws.StringValue(out.QueueUrl)
	return q.url, nil
}

func (q *SQSQueue) Send(ctx context.Context, body string) error {
	if body == "" {
		return ErrEmptyBody
	}
	url, err := q.URL(ctx)
	if err != nil {
		return err
	}
	_, err = q.client.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", q.name, err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, opts ReceiveOptions) ([]Message, error) {
	url, err := q.URL(ctx)
	if err != nil {
		return nil, err
	}

	n := opts.MaxMessages
	if n <= 0 {
		n = 1
	}
	in := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(url),
		MaxNumberOfMessages: aws.Int64(int64(n)),
		WaitTimeSeconds:     aws.Int64(int64(opts.WaitTime / time.Second)),
		AttributeNames:      []*string{aws.String(sqs.MessageSystemAttributeNameApproximateReceiveCount)},
	}
	if opts.VisibilityTimeout > 0 {
		in.VisibilityTimeout = aws.Int64(int64(opts.VisibilityTimeout / time.Second))
	}

	out, err := q.client.ReceiveMessageWithContext(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", q.name, err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := Message{
			ID:            aws.StringValue(m.MessageId),
			Body:          aws.StringValue(m.Body),
			ReceiptHandle: aws.StringValue(m.ReceiptHandle),
		}
		if v, ok := m.Attributes[sqs.MessageSystemAttributeNameApproximateReceiveCount]; ok {
			msg.ReceiveCount, _ = strconv.Atoi(aws.StringValue(v))
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	url, err := q.URL(ctx)
	if err != nil {
		return err
	}
	_, err = q.client.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", q.name, err)
	}
	return nil
}

func (q *SQSQueue) ChangeVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error {
	url, err := q.URL(ctx)
	if err != nil {
		return err
	}
	_, err = q.client.ChangeMessageVisibilityWithContext(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(url),
		ReceiptHandle:     aws.String(receiptHandle),
		VisibilityTimeout: aws.Int64(int64(timeout / time.Second)),
	})
	if err != nil {
		return fmt.Errorf("change visibility on %s: %w", q.name, err)
	}
	return nil
}

// Ping checks that the queue exists and is reachable.
func (q *SQSQueue) Ping(ctx context.Context) error {
	url, err := q.URL(ctx)
	if err != nil {
		return err
	}
	_, err = q.client.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []*string{aws.String(sqs.QueueAttributeNameApproximateNumberOfMessages)},
	})
	if err != nil {
		return fmt.Errorf("get attributes of %s: %w", q.name, err)
	}
	return nil
}

// Ensure creates the named queue with the given attributes if it does not
// exist and returns its URL and ARN. CreateQueue is idempotent in SQS as long
// as the attributes match an existing queue.
func Ensure(ctx context.Context, client sqsiface.SQSAPI, name string, attrs map[string]string) (url, arn string, err error) {
	in := &sqs.CreateQueueInput{QueueName: aws.String(name)}
	if len(attrs) > 0 {
		in.Attributes = aws.StringMap(attrs)
	}
	out, err := client.CreateQueueWithContext(ctx, in)
	if err != nil {
		return "", "", fmt.Errorf("create queue %s: %w", name, err)
	}
	url = aws.StringValue(out.QueueUrl)

	got, err := client.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []*string{aws.String(sqs.QueueAttributeNameQueueArn)},
	})
	if err != nil {
		return "", "", fmt.Errorf("get arn of %s: %w", name, err)
	}
	return url, aws.StringValue(got.Attributes[sqs.QueueAttributeNameQueueArn]), nil
}

// RedrivePolicy renders the SQS redrive policy attribute value.
func RedrivePolicy(deadLetterARN string, maxReceiveCount int) string {
	return fmt.Sprintf(`{"deadLetterTargetArn":%q,"maxReceiveCount":"%d"}`, deadLetterARN, maxReceiveCount)
}
