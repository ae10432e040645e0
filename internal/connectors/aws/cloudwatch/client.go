// Package cloudwatch publishes drift report counts as CloudWatch custom metrics.
package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/finops-claw-gang/snapdrift/internal/drift"
)

// API is the subset of the CloudWatch client used by this package.
type API interface {
	PutMetricData(ctx context.Context, params *cw.PutMetricDataInput, optFns ...func(*cw.Options)) (*cw.PutMetricDataOutput, error)
}

// maxDatumsPerCall is the PutMetricData batch limit.
const maxDatumsPerCall = 1000

// Client publishes drift metrics into one namespace.
type Client struct {
	api       API
	namespace string
	now       func() time.Time
}

// New creates a CloudWatch publisher from an AWS config.
func New(cfg aws.Config, namespace string) *Client {
	return NewFromAPI(cw.NewFromConfig(cfg), namespace)
}

// NewFromAPI creates a Client from an explicit API implementation (for testing).
func NewFromAPI(api API, namespace string) *Client {
	return &Client{api: api, namespace: namespace, now: time.Now}
}

// PublishReport writes Added, Removed and Changed counts per section, dimensioned
// by Scan and Category, plus a Drift flag for the whole scan.
func (c *Client) PublishReport(ctx context.Context, scanName string, report *drift.Report) error {
	ts := aws.Time(c.now().UTC())
	datum := func(name string, value float64, dims ...cwtypes.Dimension) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: aws.String(name),
			Value:      aws.Float64(value),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  ts,
			Dimensions: append([]cwtypes.Dimension{dimension("Scan", scanName)}, dims...),
		}
	}

	var data []cwtypes.MetricDatum
	for _, s := range report.Sections {
		cat := dimension("Category", s.Category)
		data = append(data,
			datum("Added", float64(len(s.Added)), cat),
			datum("Removed", float64(len(s.Removed)), cat),
			datum("Changed", float64(len(s.Changed)), cat),
		)
	}
	driftValue := 0.0
	if report.HasDrift() {
		driftValue = 1
	}
	data = append(data,
		datum("Drift", driftValue),
		datum("Warnings", float64(len(report.Warnings))),
	)

	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(data))
		_, err := c.api.PutMetricData(ctx, &cw.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			return fmt.Errorf("cloudwatch: put metric data: %w", err)
		}
	}
	return nil
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
