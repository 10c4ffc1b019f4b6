// Package context implements the invocation trampoline that advances process
// executions within one unit of work.
//
// A command body never calls atomic operations directly. It asks the
// InvocationContext found in its context.Context to perform them:
//
//	ic := context.FromContext(ctx)
//	if err := ic.PerformOperation(ctx, process.Start, execution); err != nil {
//	    return err
//	}
//
// Pending invocations form a stack: an invocation requested while another one
// runs is performed before anything queued earlier. Operations that are not
// async-capable run right away on the caller's stack. Async-capable operations
// are drained by an iterative loop, so long chains of steps do not grow the Go
// stack. When an execution belongs to a different process application than the
// ambient one, the trampoline asks the ports.ContextSwitcher to continue
// dispatching inside that application.
//
// # Failures
//
// The first failure recorded with TrySetFailure wins. Later ones are logged as
// masked and dropped. Rethrow classifies the recorded failure for the caller of
// the command:
//
//	fatal        returned unchanged
//	persistence  wrapped in a "process engine persistence exception"
//	recognized   returned unchanged (engine, not found, validation)
//	other        wrapped with the name of the failing command
package context
