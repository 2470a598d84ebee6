package debugloop_test

import (
	"context"
	"sync"
	"time"

	"github.com/nativecov/nativecov/core/debugloop"
)

// fakeDebugger replays a scripted sequence of RawEvents instead of talking
// to a real OS, letting loop_test.go exercise Loop.Debug deterministically.
type fakeDebugger struct {
	mu        sync.Mutex
	events    []debugloop.RawEvent
	pos       int
	startPID  uint32
	startErr  error
	dumps     []string
	continues []continueCall
	terminated []uint32
}

type continueCall struct {
	PID, TID uint32
	Action   debugloop.ContinueAction
}

func newFakeDebugger(startPID uint32, events ...debugloop.RawEvent) *fakeDebugger {
	return &fakeDebugger{startPID: startPID, events: events}
}

func (f *fakeDebugger) Start(ctx context.Context, info debugloop.StartInfo) (uint32, error) {
	if f.startErr != nil {
		return 0, f.startErr
	}
	return f.startPID, nil
}

func (f *fakeDebugger) Wait(ctx context.Context, timeout time.Duration) (debugloop.RawEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.events) {
		return debugloop.RawEvent{}, context.Canceled
	}
	ev := f.events[f.pos]
	f.pos++
	return ev, nil
}

func (f *fakeDebugger) Continue(pid, tid uint32, action debugloop.ContinueAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continues = append(f.continues, continueCall{PID: pid, TID: tid, Action: action})
	return nil
}

func (f *fakeDebugger) WriteMiniDump(pid uint32, processHandle uintptr, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dumps = append(f.dumps, path)
	return nil
}

func (f *fakeDebugger) CloseHandle(handle uintptr) error { return nil }

func (f *fakeDebugger) Terminate(pid uint32, processHandle uintptr, exitCode int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, pid)
	return nil
}

// recordingHandler captures every callback it receives, in order, for
// assertions.
type recordingHandler struct {
	mu         sync.Mutex
	calls      []string
	exceptions []debugloop.ExceptionInfo
	dumps      []debugloop.DumpCaptured
	onException func(debugloop.ExceptionInfo) debugloop.ContinueAction
}

func (h *recordingHandler) record(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, s)
}

func (h *recordingHandler) OnCreateProcess(debugloop.ProcessInfo)   { h.record("create_process") }
func (h *recordingHandler) OnCreateThread(debugloop.ThreadInfo)     { h.record("create_thread") }
func (h *recordingHandler) OnExitThread(debugloop.ThreadInfo)       { h.record("exit_thread") }
func (h *recordingHandler) OnExitProcess(debugloop.ProcessExitInfo) { h.record("exit_process") }
func (h *recordingHandler) OnLoadDll(debugloop.ModuleInfo)          { h.record("load_dll") }
func (h *recordingHandler) OnUnloadDll(debugloop.ModuleInfo)        { h.record("unload_dll") }

func (h *recordingHandler) OnException(info debugloop.ExceptionInfo) debugloop.ContinueAction {
	h.record("exception:" + info.Kind.String())
	h.mu.Lock()
	h.exceptions = append(h.exceptions, info)
	h.mu.Unlock()
	if h.onException != nil {
		return h.onException(info)
	}
	return debugloop.ContinueExecution
}

func (h *recordingHandler) OnDumpCaptured(d debugloop.DumpCaptured, err error) {
	h.record("dump_captured")
	h.mu.Lock()
	h.dumps = append(h.dumps, d)
	h.mu.Unlock()
}
