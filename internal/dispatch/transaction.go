package dispatch

import "sync"

// TxState is the per-client transaction state machine.
type TxState int

const (
	TxNone TxState = iota
	TxStarted
)

// QueuedCommand is one command queued between MULTI and EXEC.
type QueuedCommand struct {
	Args []string
}

// Transaction holds one client's MULTI/EXEC/WATCH state.
type Transaction struct {
	State       TxState
	Queue       []QueuedCommand
	WatchedKeys map[string]struct{}
	Dirty       bool
}

func newTransaction() *Transaction {
	return &Transaction{
		State:       TxNone,
		WatchedKeys: make(map[string]struct{}),
	}
}

// Reset clears queued commands and returns to TxNone. Watches and the
// dirty flag survive it — the dispatcher clears them separately, via
// UnwatchAll, on EXEC (whether or not it aborts), DISCARD and UNWATCH.
func (t *Transaction) Reset() {
	t.State = TxNone
	t.Queue = nil
}

func (t *Transaction) clearWatches() {
	t.WatchedKeys = make(map[string]struct{})
	t.Dirty = false
}

// TransactionManager tracks every client's transaction state and keeps a
// reverse index (key -> watching clients). Watchers are flagged dirty at
// write time rather than scanned at EXEC time: each db.Database looks up
// its own watch map and calls MarkDirty, which implements
// db.DirtyCASNotifier; MarkDirty does not consult the reverse index.
type TransactionManager struct {
	mu           sync.Mutex
	transactions map[int64]*Transaction
	keyWatchers  map[string]map[int64]struct{}
}

// NewTransactionManager creates an empty transaction manager.
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{
		transactions: make(map[int64]*Transaction),
		keyWatchers:  make(map[string]map[int64]struct{}),
	}
}

// Get returns (creating if necessary) the transaction state for clientID.
func (tm *TransactionManager) Get(clientID int64) *Transaction {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tx, ok := tm.transactions[clientID]; ok {
		return tx
	}
	tx := newTransaction()
	tm.transactions[clientID] = tx
	return tx
}

// RemoveClient drops all state for a disconnecting client.
func (tm *TransactionManager) RemoveClient(clientID int64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tx, ok := tm.transactions[clientID]
	if !ok {
		return
	}
	tm.unwatchAllLocked(clientID, tx)
	delete(tm.transactions, clientID)
}

// Watch registers clientID as watching key.
func (tm *TransactionManager) Watch(clientID int64, key string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tx, ok := tm.transactions[clientID]
	if !ok {
		tx = newTransaction()
		tm.transactions[clientID] = tx
	}
	tx.WatchedKeys[key] = struct{}{}
	if tm.keyWatchers[key] == nil {
		tm.keyWatchers[key] = make(map[int64]struct{})
	}
	tm.keyWatchers[key][clientID] = struct{}{}
}

// UnwatchAll clears every key clientID is watching and resets its dirty flag.
func (tm *TransactionManager) UnwatchAll(clientID int64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tx, ok := tm.transactions[clientID]
	if !ok {
		return
	}
	tm.unwatchAllLocked(clientID, tx)
}

func (tm *TransactionManager) unwatchAllLocked(clientID int64, tx *Transaction) {
	for key := range tx.WatchedKeys {
		if watchers, ok := tm.keyWatchers[key]; ok {
			delete(watchers, clientID)
			if len(watchers) == 0 {
				delete(tm.keyWatchers, key)
			}
		}
	}
	tx.clearWatches()
}

// MarkDirty implements db.DirtyCASNotifier: a mutation touched a key this
// client is watching.
func (tm *TransactionManager) MarkDirty(clientID int64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tx, ok := tm.transactions[clientID]; ok {
		tx.Dirty = true
	}
}

// IsTransactionCommand reports whether cmd controls transaction state
// rather than being queueable/executable work.
func IsTransactionCommand(cmd string) bool {
	switch cmd {
	case "MULTI", "EXEC", "DISCARD", "WATCH", "UNWATCH":
		return true
	default:
		return false
	}
}
