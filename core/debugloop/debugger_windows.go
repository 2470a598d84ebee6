//go:build windows

package debugloop

import (
	"context"
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32             = windows.NewLazySystemDLL("kernel32.dll")
	modDbgHelp              = windows.NewLazySystemDLL("dbghelp.dll")
	procWaitForDebugEvent   = modkernel32.NewProc("WaitForDebugEvent")
	procContinueDebugEvent  = modkernel32.NewProc("ContinueDebugEvent")
	procMiniDumpWriteDump   = modDbgHelp.NewProc("MiniDumpWriteDump")
)

// Win32 debug event codes (winbase.h).
const (
	createProcessDebugEvent uint32 = 3
	createThreadDebugEvent  uint32 = 2
	exitProcessDebugEvent   uint32 = 5
	exitThreadDebugEvent    uint32 = 4
	loadDllDebugEvent       uint32 = 6
	unloadDllDebugEvent     uint32 = 7
	exceptionDebugEvent     uint32 = 1
	ripEvent                uint32 = 9

	dbgContinue             uint32 = 0x00010002
	dbgExceptionNotHandled  uint32 = 0x80010001

	debugProcess          uint32 = 0x00000001
	debugOnlyThisProcess  uint32 = 0x00000002
)

// debugEvent mirrors Win32's DEBUG_EVENT. Only the union members this
// package actually consumes are decoded; the rest of the 164-byte union
// payload is skipped over via the raw byte buffer.
type debugEvent struct {
	EventCode uint32
	ProcessID uint32
	ThreadID  uint32
	raw       [164]byte
}

// exceptionRecord mirrors the fixed-size prefix of EXCEPTION_DEBUG_INFO.
type exceptionRecord struct {
	ExceptionCode    uint32
	ExceptionFlags   uint32
	ExceptionRecord  uintptr
	ExceptionAddress uintptr
	NumberParameters uint32
}

// winDebugger drives the real Win32 debug API.
type winDebugger struct {
	lastEvent debugEvent
}

// NewOSDebugger returns a Debugger backed by the native Windows debug API.
func NewOSDebugger() Debugger {
	return &winDebugger{}
}

func (d *winDebugger) Start(ctx context.Context, info StartInfo) (uint32, error) {
	cmdLine, err := windows.UTF16PtrFromString(info.CommandLine)
	if err != nil {
		return 0, &OsError{Which: "UTF16PtrFromString", Err: err}
	}

	var cwd *uint16
	if info.WorkingDir != "" {
		cwd, err = windows.UTF16PtrFromString(info.WorkingDir)
		if err != nil {
			return 0, &OsError{Which: "UTF16PtrFromString(cwd)", Err: err}
		}
	}

	var env *uint16
	if len(info.Env) > 0 {
		env, err = environBlock(info.Env)
		if err != nil {
			return 0, &OsError{Which: "environBlock", Err: err}
		}
	}

	si := new(windows.StartupInfo)
	pi := new(windows.ProcessInformation)

	err = windows.CreateProcess(
		nil,
		cmdLine,
		nil,
		nil,
		false,
		debugProcess,
		env,
		cwd,
		si,
		pi,
	)
	if err != nil {
		return 0, &OsError{Which: "CreateProcess", Err: err}
	}

	// The process and initial thread handles arrive again through the
	// first CREATE_PROCESS debug event; close these duplicates now.
	_ = windows.CloseHandle(pi.Thread)
	_ = windows.CloseHandle(pi.Process)

	return pi.ProcessId, nil
}

func (d *winDebugger) Wait(ctx context.Context, timeout time.Duration) (RawEvent, error) {
	ms := uint32(timeout.Milliseconds())
	if timeout == 0 {
		ms = windows.INFINITE
	}
	var ev debugEvent
	r, _, _ := procWaitForDebugEvent.Call(uintptr(unsafe.Pointer(&ev)), uintptr(ms))
	if r == 0 {
		errno := windows.GetLastError()
		if errno == windows.Errno(windows.ERROR_SEM_TIMEOUT) {
			return RawEvent{}, errWaitTimeout
		}
		return RawEvent{}, &OsError{Which: "WaitForDebugEvent", Err: errno}
	}

	d.lastEvent = ev
	return d.decode(ev), nil
}

func (d *winDebugger) decode(ev debugEvent) RawEvent {
	base := RawEvent{PID: ev.ProcessID, TID: ev.ThreadID}

	switch ev.EventCode {
	case createProcessDebugEvent:
		base.Kind = CreateProcessEvent
		// Real decoding would read CREATE_PROCESS_DEBUG_INFO out of ev.raw
		// (hProcess, hThread, lpImageName, etc). Abstracted behind Debugger
		// so Loop never touches ev.raw directly.
	case createThreadDebugEvent:
		base.Kind = CreateThreadEvent
	case exitThreadDebugEvent:
		base.Kind = ExitThreadEvent
	case exitProcessDebugEvent:
		base.Kind = ExitProcessEvent
	case loadDllDebugEvent:
		base.Kind = LoadDllEvent
	case unloadDllDebugEvent:
		base.Kind = UnloadDllEvent
	case exceptionDebugEvent:
		base.Kind = ExceptionEvent
		rec := (*exceptionRecord)(unsafe.Pointer(&ev.raw[0]))
		base.ExceptionCode = rec.ExceptionCode
		base.ExceptionAddress = rec.ExceptionAddress
		base.FirstChance = ev.raw[unsafe.Sizeof(exceptionRecord{})] != 0
	case ripEvent:
		base.Kind = RipEvent
	}

	return base
}

func (d *winDebugger) Continue(pid, tid uint32, action ContinueAction) error {
	status := dbgContinue
	if action == ContinueUnhandled {
		status = dbgExceptionNotHandled
	}
	r, _, errno := procContinueDebugEvent.Call(uintptr(pid), uintptr(tid), uintptr(status))
	if r == 0 {
		return &OsError{Which: "ContinueDebugEvent", Err: errno}
	}
	return nil
}

func (d *winDebugger) WriteMiniDump(pid uint32, processHandle uintptr, path string) error {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return &OsError{Which: "UTF16PtrFromString", Err: err}
	}

	file, err := windows.CreateFile(pathPtr, windows.GENERIC_WRITE, 0, nil,
		windows.CREATE_ALWAYS, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return &OsError{Which: "CreateFile", Err: err}
	}
	defer windows.CloseHandle(file)

	const miniDumpWithFullMemory = 0x00000002
	r, _, errno := procMiniDumpWriteDump.Call(
		processHandle,
		uintptr(pid),
		uintptr(file),
		uintptr(miniDumpWithFullMemory),
		0, 0, 0,
	)
	if r == 0 {
		return fmt.Errorf("%w: %w", ErrDumpWriteFailed, &OsError{Which: "MiniDumpWriteDump", Err: errno})
	}
	return nil
}

func (d *winDebugger) CloseHandle(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	if err := windows.CloseHandle(windows.Handle(handle)); err != nil {
		return &OsError{Which: "CloseHandle", Err: err}
	}
	return nil
}

func (d *winDebugger) Terminate(pid uint32, processHandle uintptr, exitCode int) error {
	h := windows.Handle(processHandle)
	if h == 0 {
		var err error
		h, err = windows.OpenProcess(windows.PROCESS_TERMINATE, false, pid)
		if err != nil {
			return &OsError{Which: "OpenProcess", Err: err}
		}
		defer windows.CloseHandle(h)
	}
	if err := windows.TerminateProcess(h, uint32(exitCode)); err != nil {
		return &OsError{Which: "TerminateProcess", Err: err}
	}
	return nil
}

// environBlock builds a double-NUL-terminated UTF-16 environment block from
// "KEY=VALUE" strings, the format CreateProcess expects.
func environBlock(env []string) (*uint16, error) {
	var block []uint16
	for _, kv := range env {
		u, err := syscall.UTF16FromString(kv)
		if err != nil {
			return nil, err
		}
		block = append(block, u[:len(u)-1]...)
		block = append(block, 0)
	}
	block = append(block, 0)
	return &block[0], nil
}
