package notify

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoInbox guarda notificações no DynamoDB.
//
// Tabela: PK usuario_id (S), SK id (S). Os ids são UUID v7, pelo que a ordem
// da chave de ordenação coincide com a ordem de criação.
type DynamoInbox struct {
	ddb   *dynamodb.Client
	table string
}

// NewDynamoClient cria o cliente. Com endpoint definido (DynamoDB local) usa
// credenciais estáticas.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func NewDynamoInbox(ddb *dynamodb.Client, table string) *DynamoInbox {
	if table == "" {
		table = "notificacoes"
	}
	return &DynamoInbox{ddb: ddb, table: table}
}

func (d *DynamoInbox) Save(ctx context.Context, ev Event) error {
	item, err := attributevalue.MarshalMap(ev)
	if err != nil {
		return err
	}
	_, err = d.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	return err
}

func (d *DynamoInbox) List(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out, err := d.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": "usuario_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, err
	}

	events := []Event{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (d *DynamoInbox) MarkRead(ctx context.Context, userID, id string) error {
	_, err := d.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"usuario_id": &types.AttributeValueMemberS{Value: userID},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET #lida = :lida"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#lida": "lida",
			"#id":   "id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lida": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrNotFound
	}
	return err
}
