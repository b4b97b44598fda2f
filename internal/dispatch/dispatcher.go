package dispatch

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"redis/internal/aof"
	"redis/internal/db"
	"redis/internal/logging"
	"redis/internal/metrics"
	"redis/internal/storage"
)

// Dispatcher ties the typed operations (C6), the keyspace (C7), and the
// append-only log (C8) together behind one entry point: Execute. It has no
// knowledge of the wire protocol or network transport — those are out of
// scope (§1); callers hand it an already-parsed argument vector and get
// back a native Go reply value.
type Dispatcher struct {
	Keyspace *db.Keyspace
	Tx       *TransactionManager
	AOF      *aof.Writer
	Limits   storage.Limits

	table map[string]Command

	mu              sync.Mutex
	clientDB        map[int64]int
	clientName      map[int64]string
	startedAt       time.Time
	lastSave        time.Time
	requirePass     string
	rewriting       bool
	lastRewriteSize int64
}

// NewDispatcher builds a dispatcher over an already-constructed keyspace
// and AOF writer.
func NewDispatcher(ks *db.Keyspace, writer *aof.Writer, limits storage.Limits, requirePass string) *Dispatcher {
	d := &Dispatcher{
		Keyspace:    ks,
		Tx:          NewTransactionManager(),
		AOF:         writer,
		Limits:      limits,
		table:       buildCommandTable(),
		clientDB:    make(map[int64]int),
		clientName:  make(map[int64]string),
		startedAt:   time.Now(),
		requirePass: requirePass,
	}
	ks.SetNotifier(d.Tx)
	return d
}

// RemoveClient drops all per-client state (transaction, watches, db
// selection, name) on disconnect.
func (disp *Dispatcher) RemoveClient(clientID int64) {
	disp.Tx.RemoveClient(clientID)
	disp.mu.Lock()
	delete(disp.clientDB, clientID)
	delete(disp.clientName, clientID)
	disp.mu.Unlock()
}

func (disp *Dispatcher) dbIndexFor(clientID int64) int {
	disp.mu.Lock()
	defer disp.mu.Unlock()
	return disp.clientDB[clientID]
}

func (disp *Dispatcher) setDBIndexFor(clientID int64, index int) {
	disp.mu.Lock()
	disp.clientDB[clientID] = index
	disp.mu.Unlock()
}

// Execute resolves, validates, and runs one command on behalf of
// clientID, implementing §4.9's dispatch algorithm: case-insensitive
// command resolution, arity checking, MULTI-queueing of non-transaction
// commands, special-cased transaction control commands, and — for
// commands that mutate state and complete successfully — normalized AOF
// propagation.
func (disp *Dispatcher) Execute(clientID int64, args []string) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("ERR empty command")
	}
	name := strings.ToUpper(args[0])

	tx := disp.Tx.Get(clientID)

	if IsTransactionCommand(name) {
		return disp.execTransactionControl(clientID, tx, name, args)
	}

	if tx.State == TxStarted {
		if _, ok := disp.table[name]; !ok {
			return nil, fmt.Errorf("ERR unknown command '%s'", args[0])
		}
		tx.Queue = append(tx.Queue, QueuedCommand{Args: args})
		return "QUEUED", nil
	}

	return disp.invoke(clientID, args)
}

// invoke runs one command immediately (bypassing transaction queueing),
// used both for ordinary top-level commands and for replaying a queued
// batch at EXEC.
func (disp *Dispatcher) invoke(clientID int64, args []string) (interface{}, error) {
	name := strings.ToUpper(args[0])
	cmd, ok := disp.table[name]
	if !ok {
		metrics.ObserveCommand(name, "unknown", 0)
		return nil, fmt.Errorf("ERR unknown command '%s'", args[0])
	}
	if err := cmd.checkArity(len(args)); err != nil {
		metrics.ObserveCommand(name, "error", 0)
		return nil, err
	}

	ctx := &ExecContext{
		ClientID:   clientID,
		DBIndex:    disp.dbIndexFor(clientID),
		Keyspace:   disp.Keyspace,
		Tx:         disp.Tx,
		Dispatcher: disp,
		limitsV:    disp.Limits,
		onSelect:   func(index int) { disp.setDBIndexFor(clientID, index) },
	}

	start := time.Now()
	result, err := cmd.Handler(ctx, args)
	elapsed := time.Since(start)

	if err != nil {
		metrics.ObserveCommand(name, "error", elapsed)
		return nil, err
	}
	metrics.ObserveCommand(name, "ok", elapsed)

	if cmd.isWrite() {
		disp.propagate(ctx.DBIndex, args, result)
	}
	return result, nil
}

// propagate normalizes and appends a successfully-executed write command
// to the AOF, if enabled.
func (disp *Dispatcher) propagate(dbIndex int, args []string, result interface{}) {
	if disp.AOF == nil {
		return
	}
	resultStr := ""
	if b, ok := result.([]byte); ok {
		resultStr = string(b)
	}
	for _, normalized := range aof.Normalize(args, time.Now().UnixMilli(), resultStr) {
		if err := disp.AOF.WriteCommand(dbIndex, normalized); err != nil {
			logging.Warn("aof propagate failed", err)
		}
	}
}

func (disp *Dispatcher) execTransactionControl(clientID int64, tx *Transaction, name string, args []string) (interface{}, error) {
	switch name {
	case "MULTI":
		if tx.State == TxStarted {
			return nil, fmt.Errorf("ERR MULTI calls can not be nested")
		}
		tx.State = TxStarted
		tx.Queue = nil
		return "OK", nil

	case "DISCARD":
		if tx.State != TxStarted {
			return nil, fmt.Errorf("ERR DISCARD without MULTI")
		}
		tx.Reset()
		disp.Tx.UnwatchAll(clientID)
		return "OK", nil

	case "WATCH":
		if tx.State == TxStarted {
			return nil, fmt.Errorf("ERR WATCH inside MULTI is not allowed")
		}
		if len(args) < 2 {
			return nil, fmt.Errorf("ERR wrong number of arguments for 'watch' command")
		}
		dbIndex := disp.dbIndexFor(clientID)
		d := disp.Keyspace.DB(dbIndex)
		for _, key := range args[1:] {
			disp.Tx.Watch(clientID, key)
			d.Watch(key, clientID)
		}
		return "OK", nil

	case "UNWATCH":
		disp.Tx.UnwatchAll(clientID)
		return "OK", nil

	case "EXEC":
		return disp.execTransaction(clientID, tx)
	}
	return nil, fmt.Errorf("ERR unknown transaction command '%s'", name)
}

func (disp *Dispatcher) execTransaction(clientID int64, tx *Transaction) (interface{}, error) {
	if tx.State != TxStarted {
		return nil, fmt.Errorf("ERR EXEC without MULTI")
	}
	queue := tx.Queue
	dirty := tx.Dirty
	tx.Reset()
	disp.Tx.UnwatchAll(clientID)

	if dirty {
		return nil, nil
	}

	dbIndex := disp.dbIndexFor(clientID)
	results := make([]interface{}, 0, len(queue))
	var batch [][]string
	for _, qc := range queue {
		result, err := disp.invokeNoPropagate(clientID, qc.Args)
		if err != nil {
			results = append(results, err)
			continue
		}
		results = append(results, result)
		name := strings.ToUpper(qc.Args[0])
		if cmd, ok := disp.table[name]; ok && cmd.isWrite() {
			batch = append(batch, aof.Normalize(qc.Args, time.Now().UnixMilli(), resultString(result))...)
		}
	}
	if disp.AOF != nil && len(batch) > 0 {
		if err := disp.AOF.WriteTransaction(dbIndex, batch); err != nil {
			logging.Warn("aof transaction propagate failed", err)
		}
	}
	return results, nil
}

// invokeNoPropagate runs a queued command without its own AOF write; the
// whole transaction is propagated as one MULTI/EXEC-wrapped batch instead.
func (disp *Dispatcher) invokeNoPropagate(clientID int64, args []string) (interface{}, error) {
	name := strings.ToUpper(args[0])
	cmd, ok := disp.table[name]
	if !ok {
		return nil, fmt.Errorf("ERR unknown command '%s'", args[0])
	}
	if err := cmd.checkArity(len(args)); err != nil {
		return nil, err
	}
	ctx := &ExecContext{
		ClientID:   clientID,
		DBIndex:    disp.dbIndexFor(clientID),
		Keyspace:   disp.Keyspace,
		Tx:         disp.Tx,
		Dispatcher: disp,
		limitsV:    disp.Limits,
		onSelect:   func(index int) { disp.setDBIndexFor(clientID, index) },
	}
	return cmd.Handler(ctx, args)
}

func resultString(result interface{}) string {
	switch v := result.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
