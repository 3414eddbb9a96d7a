package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics publishes application metrics to CloudWatch. A nil client
// turns every call into a no-op, which keeps local development quiet.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// StartTimer starts a latency measurement for the named metric
func (m *Metrics) StartTimer(metric, label string) Timer {
	return &cwTimer{
		metrics: m,
		metric:  metric,
		label:   label,
		start:   time.Now(),
	}
}

// Increment bumps a counter metric by one
func (m *Metrics) Increment(metric, label string) {
	m.put(context.Background(), types.MetricDatum{
		MetricName: aws.String(metric),
		Dimensions: []types.Dimension{
			{Name: aws.String("Label"), Value: aws.String(label)},
		},
		Value:     aws.Float64(1),
		Unit:      types.StandardUnitCount,
		Timestamp: aws.Time(time.Now()),
	})
}

// RecordLatency records latency for any operation
func (m *Metrics) RecordLatency(ctx context.Context, operation string, latency time.Duration) {
	m.put(ctx, types.MetricDatum{
		MetricName: aws.String("OperationLatency"),
		Dimensions: []types.Dimension{
			{Name: aws.String("Operation"), Value: aws.String(operation)},
		},
		Value:     aws.Float64(float64(latency.Milliseconds())),
		Unit:      types.StandardUnitMilliseconds,
		Timestamp: aws.Time(time.Now()),
	})
}

// RecordError records error occurrences
func (m *Metrics) RecordError(ctx context.Context, errorType string, errorCode string) {
	m.put(ctx, types.MetricDatum{
		MetricName: aws.String("Errors"),
		Dimensions: []types.Dimension{
			{Name: aws.String("ErrorType"), Value: aws.String(errorType)},
			{Name: aws.String("ErrorCode"), Value: aws.String(errorCode)},
		},
		Value:     aws.Float64(1),
		Unit:      types.StandardUnitCount,
		Timestamp: aws.Time(time.Now()),
	})
}

// RecordBusinessMetric records custom business metrics
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions map[string]string) {
	var cwDimensions []types.Dimension
	for name, val := range dimensions {
		cwDimensions = append(cwDimensions, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(val),
		})
	}

	m.put(ctx, types.MetricDatum{
		MetricName: aws.String(metricName),
		Dimensions: cwDimensions,
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	})
}

func (m *Metrics) put(ctx context.Context, data ...types.MetricDatum) {
	if m.client == nil {
		return
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil && m.logger != nil {
		// Metrics loss is tolerable; the operation itself succeeded
		m.logger.Warn("Failed to send metrics", zap.Error(err))
	}
}

// Timer measures one operation's duration
type Timer interface {
	Stop()
}

type cwTimer struct {
	metrics *Metrics
	metric  string
	label   string
	start   time.Time
}

func (t *cwTimer) Stop() {
	elapsed := time.Since(t.start)
	t.metrics.put(context.Background(), types.MetricDatum{
		MetricName: aws.String(t.metric),
		Dimensions: []types.Dimension{
			{Name: aws.String("Label"), Value: aws.String(t.label)},
		},
		Value:     aws.Float64(float64(elapsed.Milliseconds())),
		Unit:      types.StandardUnitMilliseconds,
		Timestamp: aws.Time(time.Now()),
	})
}
