package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsManager struct {
	values map[string]*string
	pages  [][]string
	listed int
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: v}, nil
}

func (f *fakeSecretsManager) ListSecrets(_ context.Context, in *secretsmanager.ListSecretsInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	page := f.pages[f.listed]
	f.listed++
	out := &secretsmanager.ListSecretsOutput{}
	for _, name := range page {
		out.SecretList = append(out.SecretList, types.SecretListEntry{Name: aws.String(name)})
	}
	if f.listed < len(f.pages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func TestAWSProvider_GetSecret(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]*string{
		"dev/lacework/default": aws.String(`{"account":"acme","api_key":"K","org_access":true}`),
		"dev/lacework/binary":  nil,
		"dev/lacework/text":    aws.String("not json"),
	}}
	p := &AWSProvider{client: fake}
	ctx := context.Background()

	got, err := p.GetSecret(ctx, "dev/lacework/default")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"account": "acme", "api_key": "K", "org_access": "true"}, got)

	_, err = p.GetSecret(ctx, "dev/lacework/binary")
	assert.ErrorIs(t, err, errNotString)

	_, err = p.GetSecret(ctx, "dev/lacework/text")
	assert.ErrorContains(t, err, "not a JSON object")

	_, err = p.GetSecret(ctx, "dev/lacework/missing")
	var notFound *types.ResourceNotFoundException
	assert.True(t, errors.As(err, &notFound))
}

func TestAWSProvider_ListSecretsPaginates(t *testing.T) {
	fake := &fakeSecretsManager{pages: [][]string{
		{"dev/lacework/a", "dev/lacework/b"},
		{"dev/lacework/c"},
	}}
	p := &AWSProvider{client: fake}

	names, err := p.ListSecrets(context.Background(), "dev/lacework/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev/lacework/a", "dev/lacework/b", "dev/lacework/c"}, names)
	assert.Equal(t, 2, fake.listed)
}
