/*
Package coprocess spawns child processes, like the os/exec package,
but with one huge difference: waiting for a child never blocks an
OS thread. A goroutine calling Child.Wait is parked like it would be
on a channel receive, and the thread it was running on goes back to
the scheduler, so thousands of children can be waited for at once
without thousands of threads stuck in a wait syscall.

The underlying structure used to spawn the process is still the
exec.Cmd object, but it is never waited through exec.Cmd.Wait: the
package observes the exit itself, and the redirects are plain pipes
created before the start, so no copying goroutine is involved.
Use the Command builder to configure the child, then Spawn, Status
or Output:

	out, err := coprocess.NewCommand("git", "status").Output()
	if err != nil {
		return err
	}
	if !out.Status.Success() {
		return out.Status.Err()
	}

A Child can be polled with TryWait, which never blocks, killed with
Kill, or asked to terminate with Interrupt. Once the exit has been
observed the status is cached: later calls return it without going
back to the operating system.

# Unix

Unix does not tell which child exited, only that some child did, with
the process-wide SIGCHLD. Deliveries also coalesce: two children
exiting together can produce a single signal. Every waiting Child
subscribes to a shared hub before checking its own pid with a
non-blocking wait4; every SIGCHLD wakes every subscriber, which checks
again. The hub installs the signal handler when the first subscription
is taken and removes it when the last one is closed.

Children can also be attached to a new pseudo-terminal with
Command.Pty.

# Windows

Each waiting Child registers its process handle with the kernel thread
pool through RegisterWaitForSingleObject. When the process exits a pool
thread runs a callback that wakes the waiting goroutine; the
registration is then torn down and the exit code read with
GetExitCodeProcess.

Children are created in their own process group, so that Interrupt can
send them a CTRL+BREAK event without reaching the parent. Pseudo
terminals are not supported.
*/
package coprocess
