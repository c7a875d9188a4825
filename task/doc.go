// Package task bridges goroutine-based tasks and Dragonfly's per-world
// transaction goroutine.
//
// Work runs on four kinds of execution targets:
//   - a Dispatcher per world, feeding the world's transaction goroutine in FIFO order
//   - a CPU Pool, the default for tasks started on a Scope
//   - an IO Pool for blocking calls, reached with OnPool
//   - the Scheduler, a single goroutine for timed callbacks
//
// Tasks suspend only at explicit points: Delay, DelayTicks, Task.Wait,
// Future.Await, OnWorld and OnPool. A suspended task gives its pool slot back
// and takes it again before resuming, so pool sizes bound running tasks, not
// waiting ones.
//
//	scope := scopes.For(pluginID)
//	scope.Go("regen", func(ctx context.Context) error {
//	    return task.RepeatEvery(ctx, time.Second, func() {
//	        _ = task.OnWorld(ctx, dispatchers.For(w), func(tx *world.Tx) {
//	            // mutate world state here
//	        })
//	    })
//	})
//
// World state must only be touched inside units dispatched to that world.
// Nothing here enforces it.
package task
