package awsclient_test

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/facequeue/internal/awsclient"
	"github.com/kiranshivaraju/facequeue/internal/config"
)

func TestNewSession_CustomEndpoint(t *testing.T) {
	sess, err := awsclient.NewSession(config.AWSConfig{
		Region:          "eu-west-1",
		EndpointURL:     "http://localhost:4566",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", aws.StringValue(sess.Config.Region))
	assert.Equal(t, "http://localhost:4566", aws.StringValue(sess.Config.Endpoint))
	assert.True(t, aws.BoolValue(sess.Config.S3ForcePathStyle))

	creds, err := sess.Config.Credentials.Get()
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
}

func TestNewSession_DefaultEndpoint(t *testing.T) {
	sess, err := awsclient.NewSession(config.AWSConfig{Region: "us-east-1", AccessKeyID: "a", SecretAccessKey: "b"})
	require.NoError(t, err)

	assert.Nil(t, sess.Config.Endpoint)
	assert.False(t, aws.BoolValue(sess.Config.S3ForcePathStyle))
}
