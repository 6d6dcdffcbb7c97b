package auth

import "context"

type ctxKey string

const operatorKey ctxKey = "operator"

// WithOperator stores the authenticated operator in ctx.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey, operator)
}

// OperatorFrom returns the operator stored by WithOperator, or "".
func OperatorFrom(ctx context.Context) string {
	op, _ := ctx.Value(operatorKey).(string)
	return op
}
