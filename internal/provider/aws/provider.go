// Package aws provides the AWS billing provider backed by Cost Explorer.
package aws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/costlens/backend/internal/config"
	"github.com/costlens/backend/internal/model"
	"github.com/costlens/backend/internal/normalizer"
	"github.com/costlens/backend/internal/provider"
)

const dateFormat = "2006-01-02"

// Provider implements the AWS billing provider.
type Provider struct {
	name         string
	region       string
	costExplorer *costexplorer.Client
	logger       *slog.Logger
}

// NewProvider creates a new AWS provider.
func NewProvider(cfg config.AWSConfig, logger *slog.Logger) (*Provider, error) {
	ctx := context.Background()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.AssumeRoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		creds := stscreds.NewAssumeRoleProvider(stsClient, cfg.AssumeRoleARN, func(o *stscreds.AssumeRoleOptions) {
			if cfg.ExternalID != "" {
				o.ExternalID = aws.String(cfg.ExternalID)
			}
		})
		awsCfg.Credentials = aws.NewCredentialsCache(creds)
	}

	return &Provider{
		name:         "aws",
		region:       cfg.Region,
		costExplorer: costexplorer.NewFromConfig(awsCfg),
		logger:       logger,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// Health checks AWS connectivity with a one-day cost query.
func (p *Provider) Health(ctx context.Context) provider.HealthStatus {
	_, err := p.costExplorer.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(time.Now().AddDate(0, 0, -1).Format(dateFormat)),
			End:   aws.String(time.Now().Format(dateFormat)),
		},
		Granularity: types.GranularityDaily,
		Metrics:     []string{"UnblendedCost"},
	})

	status := provider.HealthStatus{
		LastChecked: time.Now(),
		Details:     map[string]any{"region": p.region},
	}
	if err != nil {
		status.Healthy = false
		status.Message = fmt.Sprintf("AWS health check failed: %v", err)
	} else {
		status.Healthy = true
		status.Message = "AWS provider healthy"
	}
	return status
}

// FetchCosts retrieves daily per-service costs from Cost Explorer. Rows use
// Cost Explorer's native column names; the normalizer's alias table resolves
// them exactly like an uploaded export.
func (p *Provider) FetchCosts(ctx context.Context, window model.DateRange) ([]normalizer.RawRow, error) {
	p.logger.Info("fetching AWS costs",
		"start", window.Start.Format(dateFormat),
		"end", window.End.Format(dateFormat))

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(window.Start.Format(dateFormat)),
			End:   aws.String(window.End.Format(dateFormat)),
		},
		Granularity: types.GranularityDaily,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []types.GroupDefinition{
			{Type: types.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
			{Type: types.GroupDefinitionTypeDimension, Key: aws.String("REGION")},
		},
	}

	var rows []normalizer.RawRow
	var nextToken *string
	for {
		input.NextPageToken = nextToken
		output, err := p.costExplorer.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to get cost data: %w", err)
		}

		for _, result := range output.ResultsByTime {
			date := aws.ToString(result.TimePeriod.Start)
			for _, group := range result.Groups {
				metric, ok := group.Metrics["UnblendedCost"]
				if !ok || metric.Amount == nil {
					continue
				}
				row := normalizer.RawRow{
					"provider":      p.name,
					"date":          date,
					"unblendedcost": *metric.Amount,
					"currency":      aws.ToString(metric.Unit),
				}
				if len(group.Keys) > 0 {
					row["service"] = group.Keys[0]
				}
				if len(group.Keys) > 1 {
					row["region"] = group.Keys[1]
				}
				rows = append(rows, row)
			}
		}

		nextToken = output.NextPageToken
		if nextToken == nil {
			break
		}
	}

	p.logger.Info("AWS costs fetched", "rows", len(rows))
	return rows, nil
}

// Close cleans up provider resources.
func (p *Provider) Close() error {
	return nil
}
