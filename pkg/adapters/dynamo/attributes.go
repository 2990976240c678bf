package dynamo

import (
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/ruslano69/dealer/pkg/dataset"
)

// toAttributeValue конвертирует нормализованное значение в AttributeValue
// decimal.Decimal пишется как N без потери точности
func toAttributeValue(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: x}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	case []byte:
		return &types.AttributeValueMemberB{Value: x}, nil
	case decimal.Decimal:
		return &types.AttributeValueMemberN{Value: x.String()}, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("number %v cannot be stored in DynamoDB", x)
		}
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, fmt.Errorf("number %v cannot be stored in DynamoDB", x)
		}
	case map[string]any:
		m, err := toAttributeMap(x)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case dataset.Record:
		return toAttributeValue(map[string]any(x))
	case []any:
		list := make([]types.AttributeValue, len(x))
		for i, item := range x {
			av, err := toAttributeValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	}

	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return av, nil
}

// toAttributeMap конвертирует запись целиком
func toAttributeMap(rec map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(rec))
	for k, v := range rec {
		av, err := toAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

// fromItem конвертирует элемент DynamoDB в запись
// Числа читаются как decimal.Decimal, включая вложенные
func fromItem(item map[string]types.AttributeValue) (map[string]any, error) {
	var m map[string]any
	err := attributevalue.UnmarshalMapWithOptions(item, &m, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return nil, err
	}
	for k, v := range m {
		m[k] = fromNumber(v)
	}
	return m, nil
}

func fromNumber(v any) any {
	switch x := v.(type) {
	case attributevalue.Number:
		if d, err := decimal.NewFromString(string(x)); err == nil {
			return d
		}
		return string(x)
	case []attributevalue.Number:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = fromNumber(n)
		}
		return out
	case []any:
		for i, item := range x {
			x[i] = fromNumber(item)
		}
		return x
	case map[string]any:
		for k, item := range x {
			x[k] = fromNumber(item)
		}
		return x
	default:
		return v
	}
}
