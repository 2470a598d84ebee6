package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nativecov/nativecov/core/debugloop"
	"github.com/nativecov/nativecov/core/dumpstore"
	"github.com/nativecov/nativecov/core/logger"
	"github.com/nativecov/nativecov/core/runhistory"
)

// collectorHandler implements debugloop.Handler, archiving every captured
// minidump and persisting a runhistory record when those subsystems are
// enabled. Either may be nil, in which case the corresponding step is
// skipped.
type collectorHandler struct {
	log     *slog.Logger
	runID   uuid.UUID
	repo    *runhistory.Repository
	archive *dumpstore.Archiver
}

func (h *collectorHandler) OnCreateProcess(p debugloop.ProcessInfo) {
	h.log.Info("process created", logger.PID(p.PID), slog.String("image", p.ImagePath))
}

func (h *collectorHandler) OnCreateThread(t debugloop.ThreadInfo) {
	h.log.Debug("thread created", logger.PID(t.PID), logger.TID(t.TID))
}

func (h *collectorHandler) OnExitThread(t debugloop.ThreadInfo) {
	h.log.Debug("thread exited", logger.PID(t.PID), logger.TID(t.TID))
}

func (h *collectorHandler) OnExitProcess(p debugloop.ProcessExitInfo) {
	h.log.Info("process exited", logger.PID(p.PID), slog.Int("exit_code", p.ExitCode))

	if h.repo == nil {
		return
	}

	ctx := context.Background()
	status := runhistory.StatusCompleted
	if p.ExitCode != 0 {
		status = runhistory.StatusCrashed
	}
	if err := h.repo.FinishRun(ctx, h.runID, p.ExitCode, status); err != nil {
		h.log.Error("failed to record run completion", logger.Error(err))
	}
}

func (h *collectorHandler) OnLoadDll(m debugloop.ModuleInfo) {
	h.log.Debug("module loaded", logger.PID(m.PID), slog.String("path", m.Path))
}

func (h *collectorHandler) OnUnloadDll(m debugloop.ModuleInfo) {
	h.log.Debug("module unloaded", logger.PID(m.PID))
}

func (h *collectorHandler) OnException(e debugloop.ExceptionInfo) debugloop.ContinueAction {
	h.log.Info("exception classified",
		logger.PID(e.PID), logger.TID(e.TID),
		logger.ExceptionCode(e.Code), logger.EventKind(e.Kind.String()))

	if h.repo != nil && e.Kind == debugloop.Error {
		if err := h.repo.IncrementCrashCount(context.Background(), h.runID); err != nil {
			h.log.Error("failed to increment crash count", logger.Error(err))
		}
	}

	return debugloop.ContinueExecution
}

func (h *collectorHandler) OnDumpCaptured(d debugloop.DumpCaptured, writeErr error) {
	if writeErr != nil {
		h.log.Error("dump capture failed", logger.Error(writeErr), logger.PID(d.PID))
		return
	}
	h.log.Info("dump captured", logger.PID(d.PID), slog.String("path", d.Path))

	ctx := context.Background()

	location := d.Path
	contentHash := ""
	if h.archive != nil {
		archived, err := h.archive.Archive(ctx, d.Path)
		if err != nil {
			h.log.Error("dump archival failed", logger.Error(err), logger.PID(d.PID))
		} else {
			location = archived.Key
			contentHash = archived.ContentHash
		}
	}

	if h.repo == nil {
		return
	}

	dump := runhistory.Dump{
		ID:            uuid.New(),
		RunID:         h.runID,
		PID:           d.PID,
		ExceptionKind: d.Exception.Kind.String(),
		ExceptionCode: logger.ExceptionCode(d.Exception.Code).Value.String(),
		CapturedAt:    d.CapturedAt,
		ContentHash:   contentHash,
		Location:      location,
	}
	if err := h.repo.RecordDump(ctx, dump); err != nil {
		h.log.Error("failed to record dump", logger.Error(err), logger.PID(d.PID))
	}
}
