package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the request context and, when set, the transaction repos
// should run on instead of their base handle.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
