package tenant

import (
	"context"
	"errors"
)

type ctxKey int

const ctxWorkspaceID ctxKey = iota

// WithWorkspace stores the tenant's workspace id in context.
func WithWorkspace(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, ctxWorkspaceID, workspaceID)
}

// WorkspaceID extracts the tenant's workspace id from context.
func WorkspaceID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxWorkspaceID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("workspace_id not in context")
}
