package dynamo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/dataset"
	"github.com/ruslano69/dealer/pkg/retry"
)

// fakeClient - DynamoDB в памяти для тестов
type fakeClient struct {
	pages     [][]map[string]types.AttributeValue
	scanCalls int
	scanErr   error
	scans     []*dynamodb.ScanInput

	batches      [][]types.WriteRequest
	unprocessed  []int // сколько элементов вернуть необработанными на i-м вызове
	batchErr     error
	updates      []*dynamodb.UpdateItemInput
	updateErrAt  int // номер UpdateItem (с 1), который падает; 0 = никогда
	updateErrMsg string
}

func (f *fakeClient) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanCalls++
	f.scans = append(f.scans, in)
	if f.scanErr != nil {
		return nil, f.scanErr
	}

	page := 0
	if in.ExclusiveStartKey != nil {
		page, _ = strconv.Atoi(in.ExclusiveStartKey["page"].(*types.AttributeValueMemberN).Value)
	}

	out := &dynamodb.ScanOutput{Items: f.pages[page]}
	if page+1 < len(f.pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"page": &types.AttributeValueMemberN{Value: strconv.Itoa(page + 1)},
		}
	}
	return out, nil
}

func (f *fakeClient) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}

	var reqs []types.WriteRequest
	var table string
	for t, r := range in.RequestItems {
		table, reqs = t, r
	}

	call := len(f.batches)
	f.batches = append(f.batches, reqs)

	out := &dynamodb.BatchWriteItemOutput{}
	if call < len(f.unprocessed) && f.unprocessed[call] > 0 {
		n := f.unprocessed[call]
		out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[len(reqs)-n:]}
	}
	return out, nil
}

func (f *fakeClient) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.updateErrAt > 0 && len(f.updates) == f.updateErrAt {
		return nil, errors.New(f.updateErrMsg)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func pageOf(start, n int) []map[string]types.AttributeValue {
	items := make([]map[string]types.AttributeValue, n)
	for i := range items {
		items[i] = map[string]types.AttributeValue{
			"id":   &types.AttributeValueMemberN{Value: strconv.Itoa(start + i)},
			"name": &types.AttributeValueMemberS{Value: fmt.Sprintf("item-%d", start+i)},
		}
	}
	return items
}

func newTestAdapter(client Client) (*Adapter, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	a := NewWithClient(client, &logger)
	a.SetRetry(retry.EnableRetry(3, time.Millisecond))
	return a, &buf
}

func records(n int) *dataset.Dataset {
	ds := dataset.New([]string{"id", "status", "count"})
	for i := 0; i < n; i++ {
		ds.Append(dataset.Record{"id": i, "status": "new", "count": 19.99})
	}
	return ds
}

// ========== Read ==========

func TestRead_PaginatesUntilExhausted(t *testing.T) {
	client := &fakeClient{pages: [][]map[string]types.AttributeValue{pageOf(0, 100), pageOf(100, 100), pageOf(200, 50)}}
	a, _ := newTestAdapter(client)

	ds, err := a.Read(context.Background(), "orders", adapters.ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 250, ds.Len())
	assert.Equal(t, 3, client.scanCalls)
	assert.Nil(t, client.scans[0].ProjectionExpression)
}

func TestRead_LimitStopsPagination(t *testing.T) {
	client := &fakeClient{pages: [][]map[string]types.AttributeValue{pageOf(0, 100), pageOf(100, 100), pageOf(200, 50)}}
	a, logs := newTestAdapter(client)

	ds, err := a.Read(context.Background(), "orders", adapters.ReadOptions{Limit: 120})
	require.NoError(t, err)

	assert.Equal(t, 120, ds.Len())
	assert.Equal(t, 2, client.scanCalls, "third page must not be requested")
	assert.Contains(t, logs.String(), `"severity":"critical"`)
}

func TestRead_LimitNotReached(t *testing.T) {
	client := &fakeClient{pages: [][]map[string]types.AttributeValue{pageOf(0, 10), pageOf(10, 5)}}
	a, logs := newTestAdapter(client)

	ds, err := a.Read(context.Background(), "orders", adapters.ReadOptions{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 15, ds.Len())
	assert.NotContains(t, logs.String(), "critical")
}

func TestRead_NumbersAsDecimal(t *testing.T) {
	client := &fakeClient{pages: [][]map[string]types.AttributeValue{{
		{
			"id":    &types.AttributeValueMemberS{Value: "a"},
			"price": &types.AttributeValueMemberN{Value: "19.99"},
			"tags":  &types.AttributeValueMemberNS{Value: []string{"1", "2"}},
			"meta": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"qty": &types.AttributeValueMemberN{Value: "3"},
			}},
		},
	}}}
	a, _ := newTestAdapter(client)

	ds, err := a.Read(context.Background(), "orders", adapters.ReadOptions{Query: "id, price, tags, meta"})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	row := ds.Row(0)
	price, ok := row["price"].(decimal.Decimal)
	require.True(t, ok, "price is %T", row["price"])
	assert.Equal(t, "19.99", price.String())

	tags, ok := row["tags"].([]any)
	require.True(t, ok, "tags is %T", row["tags"])
	assert.True(t, decimal.NewFromInt(2).Equal(tags[1].(decimal.Decimal)))

	meta := row["meta"].(map[string]any)
	assert.True(t, decimal.NewFromInt(3).Equal(meta["qty"].(decimal.Decimal)))

	assert.Equal(t, "id, price, tags, meta", aws.ToString(client.scans[0].ProjectionExpression))
}

func TestRead_QueryKindUnsupported(t *testing.T) {
	client := &fakeClient{}
	a, _ := newTestAdapter(client)

	_, err := a.Read(context.Background(), "orders", adapters.ReadOptions{QueryKind: "query"})
	assert.ErrorIs(t, err, adapters.ErrUnsupportedOperation)
	assert.Zero(t, client.scanCalls)
}

func TestRead_ScanError(t *testing.T) {
	client := &fakeClient{scanErr: errors.New("ResourceNotFoundException")}
	a, _ := newTestAdapter(client)

	_, err := a.Read(context.Background(), "orders", adapters.ReadOptions{})
	var be *adapters.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "scan", be.Op)
}

// ========== Write: merge ==========

func TestWrite_MergeBatchesOf25(t *testing.T) {
	client := &fakeClient{}
	a, _ := newTestAdapter(client)

	n, err := a.Write(context.Background(), records(60), "orders", adapters.StrategyMerge, adapters.WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 60, n)

	require.Len(t, client.batches, 3)
	assert.Len(t, client.batches[0], 25)
	assert.Len(t, client.batches[1], 25)
	assert.Len(t, client.batches[2], 10, "remainder must be flushed on exit")

	item := client.batches[0][0].PutRequest.Item
	assert.Equal(t, &types.AttributeValueMemberN{Value: "19.99"}, item["count"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "new"}, item["status"])
}

func TestWrite_MergeRetriesUnprocessed(t *testing.T) {
	client := &fakeClient{unprocessed: []int{5}}
	a, logs := newTestAdapter(client)

	n, err := a.Write(context.Background(), records(10), "orders", adapters.StrategyMerge, adapters.WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	require.Len(t, client.batches, 2)
	assert.Len(t, client.batches[1], 5, "only unprocessed items are resubmitted")
	assert.Contains(t, logs.String(), "unprocessed")
}

func TestWrite_MergeGivesUpOnUnprocessed(t *testing.T) {
	client := &fakeClient{unprocessed: []int{2, 2, 2}}
	a, _ := newTestAdapter(client)

	n, err := a.Write(context.Background(), records(4), "orders", adapters.StrategyMerge, adapters.WriteOptions{})
	var be *adapters.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "batch_write", be.Op)
	assert.Equal(t, 2, n)
}

func TestWrite_MergeBatchError(t *testing.T) {
	client := &fakeClient{batchErr: errors.New("ValidationException")}
	a, _ := newTestAdapter(client)

	n, err := a.Write(context.Background(), records(30), "orders", adapters.StrategyMerge, adapters.WriteOptions{})
	var be *adapters.BackendError
	require.ErrorAs(t, err, &be)
	assert.Zero(t, n)
}

func TestWrite_MergeDeduplicatesByKey(t *testing.T) {
	client := &fakeClient{}
	a, _ := newTestAdapter(client)

	ds := dataset.New([]string{"id", "status"},
		dataset.Record{"id": 1, "status": "old"},
		dataset.Record{"id": 2, "status": "x"},
		dataset.Record{"id": 1, "status": "new"},
	)

	n, err := a.Write(context.Background(), ds, "orders", adapters.StrategyMerge, adapters.WriteOptions{Key: "id"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, client.batches, 1)
	require.Len(t, client.batches[0], 2)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "new"}, client.batches[0][0].PutRequest.Item["status"])
}

func TestWrite_MergeRejectsNaN(t *testing.T) {
	client := &fakeClient{}
	a, _ := newTestAdapter(client)

	ds := dataset.New([]string{"id", "v"}, dataset.Record{"id": 1, "v": nan()})
	_, err := a.Write(context.Background(), ds, "orders", adapters.StrategyMerge, adapters.WriteOptions{})
	assert.Error(t, err)
	assert.Empty(t, client.batches)
}

// ========== Write: update ==========

func TestWrite_Update(t *testing.T) {
	client := &fakeClient{}
	a, _ := newTestAdapter(client)

	ds := dataset.New([]string{"id", "new_status", "new_count"},
		dataset.Record{"id": "a", "new_status": "paid", "new_count": 3},
		dataset.Record{"id": "b", "new_status": "void", "new_count": 0},
	)

	n, err := a.Write(context.Background(), ds, "orders", adapters.StrategyUpdate, adapters.WriteOptions{
		Key:        "id",
		Expression: "status=new_status,count=new_count",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, client.updates, 2)

	in := client.updates[0]
	assert.Equal(t, "orders", aws.ToString(in.TableName))
	assert.Equal(t, "SET #a = :a, #b = :b", aws.ToString(in.UpdateExpression))
	assert.Equal(t, map[string]string{"#a": "status", "#b": "count"}, in.ExpressionAttributeNames)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "a"}, in.Key["id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "paid"}, in.ExpressionAttributeValues[":a"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, in.ExpressionAttributeValues[":b"])
}

func TestWrite_UpdateValidation(t *testing.T) {
	tests := []struct {
		name string
		opts adapters.WriteOptions
	}{
		{"no key", adapters.WriteOptions{Expression: "status=new_status"}},
		{"no expression", adapters.WriteOptions{Key: "id"}},
		{"unknown key column", adapters.WriteOptions{Key: "pk", Expression: "status=status"}},
		{"unknown source column", adapters.WriteOptions{Key: "id", Expression: "status=missing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			a, _ := newTestAdapter(client)

			_, err := a.Write(context.Background(), records(2), "orders", adapters.StrategyUpdate, tt.opts)
			assert.ErrorIs(t, err, adapters.ErrConfiguration)
			assert.Empty(t, client.updates, "validation must happen before any I/O")
		})
	}
}

func TestWrite_UpdateValidationOnEmptyDataset(t *testing.T) {
	tests := []struct {
		name string
		opts adapters.WriteOptions
	}{
		{"no key and no expression", adapters.WriteOptions{}},
		{"no key", adapters.WriteOptions{Expression: "status=new_status"}},
		{"no expression", adapters.WriteOptions{Key: "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			a, _ := newTestAdapter(client)

			n, err := a.Write(context.Background(), dataset.New([]string{"id"}), "orders", adapters.StrategyUpdate, tt.opts)
			assert.ErrorIs(t, err, adapters.ErrConfiguration)
			assert.Zero(t, n)
			assert.Empty(t, client.updates)
		})
	}
}

func TestWrite_UpdateErrorPropagates(t *testing.T) {
	client := &fakeClient{updateErrAt: 2, updateErrMsg: "ConditionalCheckFailed"}
	a, _ := newTestAdapter(client)

	n, err := a.Write(context.Background(), records(3), "orders", adapters.StrategyUpdate, adapters.WriteOptions{
		Key: "id", Expression: "status=status",
	})
	var be *adapters.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "update_item", be.Op)
	assert.Equal(t, 1, n)
	assert.Len(t, client.updates, 2)
}

// ========== Write: dispatch ==========

func TestWrite_OverwriteUnsupported(t *testing.T) {
	client := &fakeClient{}
	a, _ := newTestAdapter(client)

	n, err := a.Write(context.Background(), records(1), "orders", adapters.StrategyOverwrite, adapters.WriteOptions{})
	assert.ErrorIs(t, err, adapters.ErrUnsupportedOperation)
	assert.Zero(t, n)
	assert.Empty(t, client.batches)
}

func TestWrite_AppendLogsCritical(t *testing.T) {
	client := &fakeClient{}
	a, logs := newTestAdapter(client)

	n, err := a.Write(context.Background(), records(3), "orders", adapters.StrategyAppend, adapters.WriteOptions{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, logs.String(), `"severity":"critical"`)
	assert.Contains(t, logs.String(), "Current types of load: merge")
	assert.Empty(t, client.batches)
}

func TestWrite_UnknownStrategy(t *testing.T) {
	client := &fakeClient{}
	a, logs := newTestAdapter(client)

	n, err := a.Write(context.Background(), records(1), "orders", adapters.LoadStrategy("bogus"), adapters.WriteOptions{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, logs.String(), `"severity":"critical"`)
	assert.Empty(t, client.batches)
}

func TestWrite_EmptyDataset(t *testing.T) {
	client := &fakeClient{}
	a, _ := newTestAdapter(client)

	n, err := a.Write(context.Background(), records(0), "orders", adapters.StrategyMerge, adapters.WriteOptions{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, client.batches)
}

func TestFactoryRegistration(t *testing.T) {
	a, err := adapters.NewWithoutConnect(AdapterType)
	require.NoError(t, err)
	assert.Equal(t, AdapterType, a.Type())
}

func TestConnect_KeepsInjectedClient(t *testing.T) {
	client := &fakeClient{pages: [][]map[string]types.AttributeValue{pageOf(0, 1)}}
	a, _ := newTestAdapter(client)

	require.NoError(t, a.Connect(context.Background(), adapters.Config{Type: AdapterType}))
	ds, err := a.Read(context.Background(), "orders", adapters.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
