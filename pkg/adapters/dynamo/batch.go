package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/retry"
)

// maxBatchItems - предел BatchWriteItem
const maxBatchItems = 25

// batchWriter буферизует put-запросы и отправляет их пачками по 25
type batchWriter struct {
	client  Client
	table   string
	keys    []string // ключевые атрибуты для дедупликации; пусто = без нее
	retryer *retry.Retryer
	log     zerolog.Logger

	buf     []types.WriteRequest
	index   map[string]int // ключ элемента → позиция в buf
	written int
}

// withBatchWriter создает batchWriter, вызывает fn и всегда сбрасывает остаток
// Возвращается первая ошибка: fn или финального сброса
func withBatchWriter(ctx context.Context, client Client, table string, keys []string, rc retry.Config, log zerolog.Logger, fn func(w *batchWriter) error) (written int, err error) {
	retryer, err := retry.NewRetryer(rc)
	if err != nil {
		return 0, err
	}

	w := &batchWriter{
		client:  client,
		table:   table,
		keys:    keys,
		retryer: retryer,
		log:     log,
		index:   make(map[string]int),
	}

	defer func() {
		if ferr := w.flush(ctx); ferr != nil && err == nil {
			err = ferr
		}
		written = w.written
	}()

	return 0, fn(w)
}

// Put добавляет элемент в буфер; при 25 элементах буфер отправляется
// Повторный ключ внутри одной пачки заменяет предыдущий элемент
func (w *batchWriter) Put(ctx context.Context, item map[string]types.AttributeValue) error {
	req := types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}

	if key, ok := w.itemKey(item); ok {
		if pos, dup := w.index[key]; dup {
			w.buf[pos] = req
			return nil
		}
		w.index[key] = len(w.buf)
	}

	w.buf = append(w.buf, req)
	if len(w.buf) >= maxBatchItems {
		return w.flush(ctx)
	}
	return nil
}

func (w *batchWriter) itemKey(item map[string]types.AttributeValue) (string, bool) {
	if len(w.keys) == 0 {
		return "", false
	}
	parts := make([]string, len(w.keys))
	for i, k := range w.keys {
		av, ok := item[k]
		if !ok {
			return "", false
		}
		parts[i] = fmt.Sprintf("%#v", av)
	}
	return strings.Join(parts, "\x00"), true
}

// flush отправляет буфер; UnprocessedItems повторяются с задержкой
func (w *batchWriter) flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}

	pending := w.buf
	total := len(pending)
	w.buf = nil
	w.index = make(map[string]int)

	err := w.retryer.Do(ctx, func(ctx context.Context) error {
		out, err := w.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{w.table: pending},
		})
		if err != nil {
			return retry.Permanent(adapters.NewBackendError(AdapterType, "batch_write", err))
		}

		pending = out.UnprocessedItems[w.table]
		if len(pending) > 0 {
			w.log.Warn().Int("unprocessed", len(pending)).Str("table", w.table).Msg("BatchWriteItem returned unprocessed items")
			return fmt.Errorf("%d unprocessed items", len(pending))
		}
		return nil
	})

	w.written += total - len(pending)
	if err != nil {
		var be *adapters.BackendError
		if errors.As(err, &be) {
			return err
		}
		return adapters.NewBackendError(AdapterType, "batch_write", err)
	}

	w.log.Debug().Int("items", total).Str("table", w.table).Msg("Flushed batch")
	return nil
}
