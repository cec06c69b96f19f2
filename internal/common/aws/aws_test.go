// internal/common/aws/aws_test.go
package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	SendEmailFunc func(ctx context.Context, in *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

func (f *fakeSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return f.SendEmailFunc(ctx, in)
}

type fakeSNS struct {
	PublishFunc func(ctx context.Context, in *sns.PublishInput) (*sns.PublishOutput, error)
}

func (f *fakeSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return f.PublishFunc(ctx, in)
}

func TestSESClient_SendText(t *testing.T) {
	var got *ses.SendEmailInput
	client := NewSESClientWithAPI(&fakeSES{SendEmailFunc: func(_ context.Context, in *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
		got = in
		return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
	}}, "tours@example.com")

	id, err := client.SendText(context.Background(), []string{"expert@example.com"}, "New request", "Session sess-1")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "tours@example.com", aws.ToString(got.Source))
	assert.Equal(t, []string{"expert@example.com"}, got.Destination.ToAddresses)
	assert.Equal(t, "New request", aws.ToString(got.Message.Subject.Data))
	assert.Equal(t, "Session sess-1", aws.ToString(got.Message.Body.Text.Data))
}

func TestSESClient_Errors(t *testing.T) {
	client := NewSESClientWithAPI(&fakeSES{SendEmailFunc: func(context.Context, *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
		return nil, errors.New("throttled")
	}}, "tours@example.com")

	_, err := client.SendText(context.Background(), nil, "s", "b")
	assert.ErrorContains(t, err, "no recipients")

	_, err = client.SendText(context.Background(), []string{"a@example.com"}, "s", "b")
	assert.ErrorContains(t, err, "throttled")
}

func TestSNSClient_SendSMS(t *testing.T) {
	var got *sns.PublishInput
	client := NewSNSClientWithAPI(&fakeSNS{PublishFunc: func(_ context.Context, in *sns.PublishInput) (*sns.PublishOutput, error) {
		got = in
		return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
	}}, "TOURS")

	id, err := client.SendSMS(context.Background(), "+821012345678", "Your estimate is ready")
	require.NoError(t, err)
	assert.Equal(t, "sms-1", id)
	assert.Equal(t, "+821012345678", aws.ToString(got.PhoneNumber))
	assert.Equal(t, "TOURS", aws.ToString(got.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
	assert.Equal(t, "Transactional", aws.ToString(got.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))

	_, err = client.SendSMS(context.Background(), "", "x")
	assert.Error(t, err)
}
