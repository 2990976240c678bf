// Package dynamo - адаптер Amazon DynamoDB.
//
// Регистрируется под типом "dynamodb". Клиент строится в Connect через
// aws-sdk-go-v2: регион (по умолчанию us-east-1), статические ключи
// или стандартная цепочка credentials, альтернативный endpoint.
//
// Чтение - Scan с пагинацией по LastEvaluatedKey; числа возвращаются
// как decimal.Decimal.
//
// Стратегии записи:
//   - merge: put каждой записи пачками по 25 (BatchWriteItem),
//     UnprocessedItems повторяются с экспоненциальной задержкой
//   - update: UpdateItem на каждую запись, "SET #a = :a, #b = :b"
//   - overwrite: adapters.ErrUnsupportedOperation
//   - append: critical в лог, запись не выполняется (отличия от merge нет)
package dynamo
