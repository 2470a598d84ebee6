// Package logger provides structured logging utilities built on Go's standard slog package.
// It offers environment-specific configurations, context-aware attribute extraction, and a
// set of pre-built attributes for the debug-event and coverage-filtering vocabulary used by
// the rest of this module.
//
// # Basic Usage
//
//	import "github.com/nativecov/nativecov/core/logger"
//
//	log := logger.New(logger.WithDevelopment("debugloop"))
//
//	log.Info("target launched",
//		logger.PID(rootPID),
//		logger.Event("create_process"),
//	)
//
// # Environment Configurations
//
//	devLogger := logger.New(logger.WithDevelopment("collector"))  // text, debug level
//	prodLogger := logger.New(logger.WithProduction("collector"))  // JSON, info level
//
//	customLogger := logger.New(
//		logger.WithLevel(slog.LevelWarn),
//		logger.WithJSONFormatter(),
//		logger.WithAttr(slog.String("run_id", runID)),
//		logger.WithOutput(os.Stderr),
//	)
//
// # Context-Aware Logging
//
//	log := logger.New(
//		logger.WithProduction("collector"),
//		logger.WithContextValue("run_id", "run_id"),
//	)
//
//	ctx := context.WithValue(context.Background(), "run_id", runID.String())
//	log.InfoContext(ctx, "debug event dispatched")
//
// # Attribute Helpers
//
//	log.Error("unhandled exception",
//		logger.Error(err),
//		logger.PID(pid),
//		logger.TID(tid),
//		logger.ExceptionCode(exceptionRecord.ExceptionCode),
//	)
package logger
