// Package service implements the lifecycle framework of spec §4.3: every
// long-running component in the runtime (ingestor, insights pipeline,
// strategy, executor, accounting ledger, ...) implements Runnable and is
// driven through Stopped -> Starting -> Running -> Stopping -> Stopped by a
// Container.
//
// Grounded on _examples/original_source/arkin-core/src/{service,traits}.rs
// (ServiceState/ServiceCtx/Runnable/Service), translated from
// tokio::sync::RwLock + TaskTracker + CancellationToken to a sync.RWMutex,
// sync.WaitGroup, and context.CancelFunc in the teacher's own idiom
// (internal/engine/engine.go's ctx/cancel/wg fields).
package service

// State is the lifecycle stage of one Runnable.
type State string

const (
	Stopped  State = "stopped"
	Starting State = "starting"
	Running  State = "running"
	Stopping State = "stopping"
)

// String satisfies fmt.Stringer for logging.
func (s State) String() string { return string(s) }
