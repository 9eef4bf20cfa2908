package fewshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/haasonsaas/quarry/internal/config"
	"github.com/haasonsaas/quarry/internal/observability"
)

// DynamoAPI is the subset of *dynamodb.Client the registry needs. Tests
// substitute an in-memory fake.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRegistry stores examples in a DynamoDB table keyed by name.
type DynamoRegistry struct {
	client DynamoAPI
	table  string
	logger *observability.Logger
	now    func() time.Time
}

// NewDynamoRegistry builds the registry on a live DynamoDB client.
func NewDynamoRegistry(awsCfg aws.Config, cfg config.FewShotsConfig, logger *observability.Logger) *DynamoRegistry {
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Region != "" {
			o.Region = cfg.Region
		}
	})
	return NewDynamoRegistryWith(client, cfg.Table, logger)
}

// NewDynamoRegistryWith wires an explicit client.
func NewDynamoRegistryWith(client DynamoAPI, table string, logger *observability.Logger) *DynamoRegistry {
	return &DynamoRegistry{
		client: client,
		table:  table,
		logger: logger,
		now:    time.Now,
	}
}

func (r *DynamoRegistry) Put(ctx context.Context, example Example) error {
	if err := validateExample(example); err != nil {
		return err
	}
	if example.CreatedAt.IsZero() {
		example.CreatedAt = r.now().UTC()
	}

	item, err := attributevalue.MarshalMap(example)
	if err != nil {
		return fmt.Errorf("marshal example %s: %w", example.Name, err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put example %s: %w", example.Name, err)
	}
	if r.logger != nil {
		r.logger.Info(ctx, "stored few-shot example", "name", example.Name)
	}
	return nil
}

func (r *DynamoRegistry) Get(ctx context.Context, name string) (Example, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]ddbtypes.AttributeValue{
			"name": &ddbtypes.AttributeValueMemberS{Value: name},
		},
	})
	if err != nil {
		return Example{}, fmt.Errorf("get example %s: %w", name, err)
	}
	if len(out.Item) == 0 {
		return Example{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	var example Example
	if err := attributevalue.UnmarshalMap(out.Item, &example); err != nil {
		return Example{}, fmt.Errorf("unmarshal example %s: %w", name, err)
	}
	return example, nil
}

func (r *DynamoRegistry) List(ctx context.Context) ([]Example, error) {
	var examples []Example
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan examples: %w", err)
		}
		var batch []Example
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal examples: %w", err)
		}
		examples = append(examples, batch...)
	}

	sort.Slice(examples, func(i, j int) bool { return examples[i].Name < examples[j].Name })
	return examples, nil
}
