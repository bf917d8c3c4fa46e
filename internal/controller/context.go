package controller

import "context"

type contextKey int

const identityCtxKey contextKey = iota

func withIdentityId(ctx context.Context, identityId string) context.Context {
	return context.WithValue(ctx, identityCtxKey, identityId)
}

func (c controller) getIdentityIdFromCtx(ctx context.Context) string {
	identityId, ok := ctx.Value(identityCtxKey).(string)
	if !ok {
		return ""
	}

	return identityId
}
