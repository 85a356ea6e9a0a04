package testutil

import (
	"context"

	"github.com/flexprice/taxsync/internal/types"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxTenantID, types.DefaultTenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}

// ContextForTenant returns a test context scoped to tenantID
func ContextForTenant(tenantID string) context.Context {
	return types.SetTenantID(SetupContext(), tenantID)
}
