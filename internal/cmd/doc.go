// Package cmd provides helpers for executing external commands with proper
// error handling and lifecycle tracking.
//
// [Run] and [Output] wrap [os/exec.Cmd] to capture stderr and use it as the
// error message, making command failures more informative for users.
// [RunContext] and [OutputContext] add context cancellation and verbose
// command echoing through the context logger.
//
// Long-running commands are started with [Start], which returns a [Process]
// that can be registered with a [Supervisor]. A supervisor owns every process
// of one unit of work (one save call) and can terminate all of them when a
// sibling fails.
//
// # Usage
//
//	sup := cmd.NewSupervisor()
//	p, err := cmd.Start(ctx, dir, "tar", "-cf", dest, name)
//	if err != nil {
//	    return err
//	}
//	sup.Track(p)
//	if err := p.Wait(); err != nil {
//	    sup.KillAll(ctx)
//	    return err
//	}
//
// # Design Notes
//
// cicache shells out to tar and an external compressor (pigz by default)
// instead of archiving in-process. Multi-threaded compressors are
// considerably faster on large dependency trees, and archives stay readable
// with plain tar on any runner.
package cmd
