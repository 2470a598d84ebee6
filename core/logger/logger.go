package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ContextExtractor pulls a single attribute out of a context.Context. The
// second return value reports whether the attribute should be attached; a
// false return means the value was absent and nothing is logged.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

type options struct {
	level             slog.Level
	json              bool
	output            io.Writer
	attrs             []slog.Attr
	handlerOptions    *slog.HandlerOptions
	contextValues     map[string]string
	contextExtractors []ContextExtractor
}

// Option configures a Logger built by New.
type Option func(*options)

// WithLevel sets the minimum level that will be logged.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithJSONFormatter selects JSON output instead of the default text format.
func WithJSONFormatter() Option {
	return func(o *options) { o.json = true }
}

// WithOutput sets the destination writer. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithAttr attaches static attributes to every record produced by the logger.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// WithHandlerOptions overrides the underlying slog.HandlerOptions, for
// callers that need AddSource or a custom ReplaceAttr.
func WithHandlerOptions(ho *slog.HandlerOptions) Option {
	return func(o *options) { o.handlerOptions = ho }
}

// WithContextValue copies the value stored under contextKey in a record's
// context into an attribute named attrName, when present.
func WithContextValue(contextKey, attrName string) Option {
	return func(o *options) {
		if o.contextValues == nil {
			o.contextValues = make(map[string]string)
		}
		o.contextValues[contextKey] = attrName
	}
}

// WithContextExtractors registers custom functions for deriving attributes
// from a record's context, in addition to WithContextValue mappings.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		o.contextExtractors = append(o.contextExtractors, extractors...)
	}
}

// WithDevelopment configures a human-readable text logger at debug level,
// tagged with the given component name.
func WithDevelopment(component string) Option {
	return func(o *options) {
		o.level = slog.LevelDebug
		o.json = false
		o.attrs = append(o.attrs, slog.String("component", component))
	}
}

// WithProduction configures a JSON logger at info level, tagged with the
// given component name.
func WithProduction(component string) Option {
	return func(o *options) {
		o.level = slog.LevelInfo
		o.json = true
		o.attrs = append(o.attrs, slog.String("component", component))
	}
}

// WithStaging is an alias for WithProduction; staging environments log at the
// same level and format as production.
func WithStaging(component string) Option {
	return WithProduction(component)
}

// New builds a *slog.Logger from the given options. With no options it
// produces a text logger at info level writing to os.Stdout.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	ho := o.handlerOptions
	if ho == nil {
		ho = &slog.HandlerOptions{Level: o.level}
	}

	var handler slog.Handler
	if o.json {
		handler = slog.NewJSONHandler(o.output, ho)
	} else {
		handler = slog.NewTextHandler(o.output, ho)
	}

	if len(o.contextValues) > 0 || len(o.contextExtractors) > 0 {
		handler = &contextHandler{
			Handler:           handler,
			contextValues:     o.contextValues,
			contextExtractors: o.contextExtractors,
		}
	}

	l := slog.New(handler)
	if len(o.attrs) > 0 {
		args := make([]any, 0, len(o.attrs))
		for _, a := range o.attrs {
			args = append(args, a)
		}
		l = l.With(args...)
	}
	return l
}

// SetAsDefault installs l as the process-wide default logger, making
// slog.Info and friends use it.
func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// contextHandler decorates a base slog.Handler with attributes pulled out of
// each record's context, via either string-keyed context values or custom
// extractor functions.
type contextHandler struct {
	slog.Handler
	contextValues     map[string]string
	contextExtractors []ContextExtractor
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	for key, attrName := range h.contextValues {
		if v := ctx.Value(key); v != nil {
			r.AddAttrs(slog.Any(attrName, v))
		}
	}
	for _, extractor := range h.contextExtractors {
		if attr, ok := extractor(ctx); ok {
			r.AddAttrs(attr)
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{
		Handler:           h.Handler.WithAttrs(attrs),
		contextValues:     h.contextValues,
		contextExtractors: h.contextExtractors,
	}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{
		Handler:           h.Handler.WithGroup(name),
		contextValues:     h.contextValues,
		contextExtractors: h.contextExtractors,
	}
}
