package secrets

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGetter struct {
	mock.Mock
}

func (m *mockGetter) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, aws.ToString(params.SecretId))
	out, _ := args.Get(0).(*secretsmanager.GetSecretValueOutput)
	return out, args.Error(1)
}

func TestLoadIntoEnv_SetsOnlyMissing(t *testing.T) {
	t.Setenv("NOVA_TEST_PRESET", "keep")
	t.Cleanup(func() { _ = os.Unsetenv("NOVA_TEST_TOKEN") })

	getter := &mockGetter{}
	getter.On("GetSecretValue", mock.Anything, "nova/prod").Return(&secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"NOVA_TEST_TOKEN":"xoxb-1","NOVA_TEST_PRESET":"override","NOVA_TEST_NUMBER":5}`),
	}, nil)

	set, err := LoadIntoEnv(context.Background(), getter, "nova/prod", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"NOVA_TEST_TOKEN"}, set)
	assert.Equal(t, "xoxb-1", os.Getenv("NOVA_TEST_TOKEN"))
	assert.Equal(t, "keep", os.Getenv("NOVA_TEST_PRESET"))
	_, hasNumber := os.LookupEnv("NOVA_TEST_NUMBER")
	assert.False(t, hasNumber)
	getter.AssertExpectations(t)
}

func TestLoadIntoEnv_Errors(t *testing.T) {
	testcases := []struct {
		name string
		out  *secretsmanager.GetSecretValueOutput
		err  error
	}{
		{"api error", nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "not found"}},
		{"binary secret", &secretsmanager.GetSecretValueOutput{SecretBinary: []byte{1}}, nil},
		{"not json", &secretsmanager.GetSecretValueOutput{SecretString: aws.String("plain")}, nil},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			getter := &mockGetter{}
			getter.On("GetSecretValue", mock.Anything, "nova/prod").Return(tc.out, tc.err)

			_, err := LoadIntoEnv(context.Background(), getter, "nova/prod", nil)
			require.Error(t, err)
			if tc.err != nil {
				var apiErr smithy.APIError
				assert.True(t, errors.As(err, &apiErr))
			}
		})
	}
}

func TestBootstrap_NoSecretConfigured(t *testing.T) {
	t.Setenv(EnvSecretID, "")
	assert.NoError(t, Bootstrap(context.Background(), nil))
}
