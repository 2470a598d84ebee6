package debugloop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/nativecov/nativecov/core/dumpguard"
	"github.com/nativecov/nativecov/core/logger"
)

// waitTimeout bounds each WaitForDebugEvent call so the loop can notice
// context cancellation promptly instead of blocking forever.
const waitTimeout = 250 * time.Millisecond

// Loop drives a single debug session: it owns the process and thread
// handle tables for everything spawned under the root target, dispatches
// events to a Handler, and decides when a minidump is worth capturing.
//
// A Loop is single-use: call Debug once, discard it afterward.
type Loop struct {
	debugger  Debugger
	log       *slog.Logger
	dumpGuard *dumpguard.Guard

	running atomic.Bool

	processes map[uint32]*processState
	threads   map[uint32]*threadState

	rootPID      uint32
	rootExitCode int
	rootExited   bool
}

type processState struct {
	info             ProcessInfo
	seenInitialBreak bool
}

type threadState struct {
	info ThreadInfo
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger attaches a structured logger; defaults to a discarding one.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) { lp.log = l }
}

// WithDumpGuard throttles minidump writes through g, preventing a crash
// loop from exhausting disk space.
func WithDumpGuard(g *dumpguard.Guard) Option {
	return func(lp *Loop) { lp.dumpGuard = g }
}

// NewLoop builds a Loop driven by debugger.
func NewLoop(debugger Debugger, opts ...Option) *Loop {
	lp := &Loop{
		debugger:  debugger,
		log:       logger.New(logger.WithOutput(io.Discard)),
		processes: make(map[uint32]*processState),
		threads:   make(map[uint32]*threadState),
	}
	for _, opt := range opts {
		opt(lp)
	}
	return lp
}

// Debug launches startInfo.CommandLine under the debugger, pumps debug
// events to handler until the root process (and every process it spawned)
// has exited or ctx is cancelled, and returns the root process's exit code.
func (lp *Loop) Debug(ctx context.Context, startInfo StartInfo, handler Handler) (int, error) {
	if !lp.running.CompareAndSwap(false, true) {
		return 0, ErrAlreadyRunning
	}
	defer lp.running.Store(false)

	if startInfo.CommandLine == "" {
		return 0, ErrEmptyCommandLine
	}

	pid, err := lp.debugger.Start(ctx, startInfo)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProcessCreateFailed, err)
	}
	lp.rootPID = pid

	lp.log.InfoContext(ctx, "target launched", logger.PID(pid), logger.EventKind("start"))

	for {
		if ctx.Err() != nil {
			lp.terminateAll(startInfo)
			return lp.rootExitCode, ctx.Err()
		}

		event, err := lp.debugger.Wait(ctx, waitTimeout)
		if err != nil {
			if err == errWaitTimeout {
				continue
			}
			return lp.rootExitCode, fmt.Errorf("debugloop: wait for debug event: %w", err)
		}

		done, err := lp.dispatch(ctx, event, startInfo, handler)
		if err != nil {
			return lp.rootExitCode, err
		}
		if done {
			return lp.rootExitCode, nil
		}
	}
}

// errWaitTimeout is a sentinel a Debugger implementation may return from
// Wait to signal "no event within timeout, try again"; it is never returned
// to callers of Debug.
var errWaitTimeout = fmt.Errorf("debugloop: wait timeout")

func (lp *Loop) dispatch(ctx context.Context, event RawEvent, startInfo StartInfo, handler Handler) (done bool, err error) {
	switch event.Kind {
	case CreateProcessEvent:
		lp.processes[event.PID] = &processState{
			info: ProcessInfo{
				PID:       event.PID,
				Handle:    event.ProcessHandle,
				ImagePath: event.ImagePath,
				ParentPID: event.ParentPID,
			},
		}
		lp.threads[event.TID] = &threadState{info: ThreadInfo{TID: event.TID, PID: event.PID, Handle: event.ThreadHandle}}
		handler.OnCreateProcess(lp.processes[event.PID].info)
		return false, lp.debugger.Continue(event.PID, event.TID, ContinueExecution)

	case CreateThreadEvent:
		lp.threads[event.TID] = &threadState{info: ThreadInfo{TID: event.TID, PID: event.PID, Handle: event.NewThreadHandle}}
		handler.OnCreateThread(lp.threads[event.TID].info)
		return false, lp.debugger.Continue(event.PID, event.TID, ContinueExecution)

	case ExitThreadEvent:
		if th, ok := lp.threads[event.TID]; ok {
			handler.OnExitThread(th.info)
			_ = lp.debugger.CloseHandle(th.info.Handle)
			delete(lp.threads, event.TID)
		}
		return false, lp.debugger.Continue(event.PID, event.TID, ContinueExecution)

	case ExitProcessEvent:
		return lp.handleExitProcess(ctx, event, handler)

	case LoadDllEvent:
		handler.OnLoadDll(ModuleInfo{PID: event.PID, BaseOfDll: event.BaseOfDll, Path: event.ModulePath})
		return false, lp.debugger.Continue(event.PID, event.TID, ContinueExecution)

	case UnloadDllEvent:
		handler.OnUnloadDll(ModuleInfo{PID: event.PID, BaseOfDll: event.BaseOfDll})
		return false, lp.debugger.Continue(event.PID, event.TID, ContinueExecution)

	case ExceptionEvent:
		return lp.handleException(ctx, event, startInfo, handler)

	case RipEvent:
		lp.log.WarnContext(ctx, "debugger rip event", logger.PID(event.PID),
			slog.Uint64("rip_error", uint64(event.RipError)), slog.Uint64("rip_type", uint64(event.RipType)))
		return false, lp.debugger.Continue(event.PID, event.TID, ContinueExecution)

	default:
		return false, &InvariantError{Kind: fmt.Sprintf("unknown event kind %v", event.Kind)}
	}
}

func (lp *Loop) handleExitProcess(ctx context.Context, event RawEvent, handler Handler) (bool, error) {
	ps, ok := lp.processes[event.PID]
	if !ok {
		return false, &InvariantError{Kind: "exit_process for unknown pid"}
	}

	handler.OnExitProcess(ProcessExitInfo{PID: event.PID, ExitCode: event.ExitCode})
	_ = lp.debugger.CloseHandle(ps.info.Handle)
	delete(lp.processes, event.PID)

	if event.PID == lp.rootPID {
		lp.rootExitCode = event.ExitCode
		lp.rootExited = true
	}

	// The session ends once the root process has exited and no process it
	// spawned is still attached; child processes are tracked the same way
	// as the root in lp.processes, so an empty table means the whole tree
	// is gone.
	if lp.rootExited && len(lp.processes) == 0 {
		return true, nil
	}

	return false, lp.debugger.Continue(event.PID, event.TID, ContinueExecution)
}

func (lp *Loop) handleException(ctx context.Context, event RawEvent, startInfo StartInfo, handler Handler) (bool, error) {
	ps, ok := lp.processes[event.PID]
	if !ok {
		return false, &InvariantError{Kind: "exception for unknown pid"}
	}

	isInitial := event.ExceptionCode == exceptionBreakpoint && !ps.seenInitialBreak
	if isInitial {
		ps.seenInitialBreak = true
	}

	kind := classify(event.ExceptionCode, event.FirstChance, isInitial, startInfo.StopOnAssert)

	info := ExceptionInfo{
		PID:         event.PID,
		TID:         event.TID,
		Kind:        kind,
		Code:        event.ExceptionCode,
		Address:     event.ExceptionAddress,
		FirstChance: event.FirstChance,
	}

	lp.log.InfoContext(ctx, "exception raised",
		logger.PID(event.PID), logger.TID(event.TID),
		logger.ExceptionCode(event.ExceptionCode), logger.EventKind(kind.String()))

	action := handler.OnException(info)

	if shouldCaptureDump(kind, startInfo.DumpOnCrash) {
		lp.captureDump(ctx, ps.info, info, startInfo, handler)
	}

	if action == ContinueExecution && defaultContinueAction(kind) == ContinueUnhandled {
		// A handler cannot consume an exception the target's own handlers
		// must see: a first-chance exception, an assertion break under
		// StopOnAssert, or a second-chance exception the target is already
		// unwinding.
		action = ContinueUnhandled
	}

	return false, lp.debugger.Continue(event.PID, event.TID, action)
}

func (lp *Loop) captureDump(ctx context.Context, proc ProcessInfo, exc ExceptionInfo, startInfo StartInfo, handler Handler) {
	if lp.dumpGuard != nil {
		allowed, retryAfter, err := lp.dumpGuard.Allow(ctx, proc.PID)
		if err != nil {
			lp.log.WarnContext(ctx, "dump guard check failed", logger.Error(err), logger.PID(proc.PID))
		} else if !allowed {
			lp.log.WarnContext(ctx, "dump write suppressed by guard", logger.PID(proc.PID), slog.Duration("retry_after", retryAfter))
			return
		}
	}

	dir := startInfo.DumpDirectory
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%d-%s.dmp", proc.PID, time.Now().Format("2006-01-02-15-04-05")))

	err := lp.debugger.WriteMiniDump(proc.PID, proc.Handle, path)
	captured := DumpCaptured{PID: proc.PID, Path: path, Exception: exc, CapturedAt: time.Now()}

	if err != nil {
		lp.log.ErrorContext(ctx, "minidump write failed", logger.Error(err), logger.PID(proc.PID))
	} else {
		lp.log.InfoContext(ctx, "minidump captured", logger.PID(proc.PID), slog.String("path", path))
	}

	handler.OnDumpCaptured(captured, err)
}

func (lp *Loop) terminateAll(startInfo StartInfo) {
	for pid, ps := range lp.processes {
		_ = lp.debugger.Terminate(pid, ps.info.Handle, 1)
	}
}
