package dispatch

import (
	"time"

	"redis/internal/db"
	"redis/internal/storage"
)

// ExecContext carries the per-client state Execute needs: which client is
// calling (for WATCH/dirty-CAS bookkeeping), which numbered database it
// currently has SELECTed, and handles back into the keyspace/transaction
// manager so handlers can resolve both without a global.
type ExecContext struct {
	ClientID int64
	DBIndex  int

	Keyspace   *db.Keyspace
	Tx         *TransactionManager
	Dispatcher *Dispatcher
	limitsV    storage.Limits

	// onSelect persists a SELECTed db index back to the dispatcher's
	// per-client session table; set by Dispatcher.Execute.
	onSelect func(index int)
}

// d resolves the client's currently-selected database.
func (ctx *ExecContext) d() *db.Database {
	return ctx.Keyspace.DB(ctx.DBIndex)
}

// limits returns the encoding-promotion thresholds in effect for this call.
func (ctx *ExecContext) limits() storage.Limits {
	return ctx.limitsV
}

// selectDB updates both this context's working DBIndex and the session
// table so subsequent commands from the same client see the new selection.
func (ctx *ExecContext) selectDB(index int) error {
	ctx.DBIndex = index
	if ctx.onSelect != nil {
		ctx.onSelect(index)
	}
	return nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }
