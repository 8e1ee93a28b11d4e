package cloudwatch

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, in)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestMetrics_Flush(t *testing.T) {
	t.Run("prefixes component and ships buffered datums", func(t *testing.T) {
		client := new(mockCloudWatch)
		metrics := newMetrics(client, "pgmirror/test")
		scoped := metrics.WithTags(map[string]string{"component": "resolver"})

		client.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
			return aws.ToString(in.Namespace) == "pgmirror/test" &&
				len(in.MetricData) == 1 &&
				aws.ToString(in.MetricData[0].MetricName) == "resolver.resolve.success"
		})).Return(nil).Once()

		scoped.IncrementCounter("resolve.success", nil)
		require.NoError(t, metrics.Flush(context.Background()))

		client.AssertExpectations(t)
	})

	t.Run("empty buffer sends nothing", func(t *testing.T) {
		client := new(mockCloudWatch)
		metrics := newMetrics(client, "ns")

		require.NoError(t, metrics.Flush(context.Background()))
		client.AssertNotCalled(t, "PutMetricData", mock.Anything, mock.Anything)
	})

	t.Run("client error is returned", func(t *testing.T) {
		client := new(mockCloudWatch)
		metrics := newMetrics(client, "ns")
		client.On("PutMetricData", mock.Anything, mock.Anything).Return(errors.New("throttled"))

		metrics.RecordGauge("index.size", 10, nil)
		err := metrics.Flush(context.Background())

		assert.ErrorContains(t, err, "throttled")
	})
}
