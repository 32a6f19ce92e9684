// Package manager is the VRAM admission and eviction scheduler. It decides
// which models may be resident on the GPU, serializes load and unload
// operations, and reclaims memory from idle models. It is structured into
// small files by concern:
//
//   - manager.go: core Manager type, Start/Close and the coordinator loop.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: lifecycle states, loaded-model entries, request outcomes.
//   - queue.go: priority queue of pending operations and the outcome history.
//   - admission.go: RequestLoad, Await, CancelRequest and the load operation.
//   - evict.go: eviction candidate selection and the greedy eviction pass.
//   - unload.go: UnloadModel and the shared unload path.
//   - optimize.go: Optimize and the idle sweeper.
//   - sessions.go: Touch and session protection.
//   - resync.go: rediscovery of resident models at startup.
//   - status_report.go: Status, QueueStatus and model listings.
//   - health.go: provider reachability checks.
//   - errors.go: typed errors and IsXxx helpers.
//   - events.go: EventPublisher and built-in publishers.
//
// Only the coordinator goroutine changes an entry's lifecycle state. Readers
// take the read lock briefly and never wait on a provider call.
package manager
