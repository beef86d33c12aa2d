package delegate

import "go.uber.org/zap"

// EngineOption configures an Engine via the functional options pattern.
type EngineOption func(*engineOptions)

type engineOptions struct {
	log       *zap.Logger
	templates TemplateEngine
}

func resolveEngineOptions(opts []EngineOption) engineOptions {
	var o engineOptions
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.templates == nil {
		o.templates = NewPlaceholderEngine()
	}
	return o
}

// WithLogger sets the structured logger. Default is a no-op logger.
func WithLogger(log *zap.Logger) EngineOption {
	return func(o *engineOptions) { o.log = log }
}

// WithTemplateEngine replaces the default {Key}-substitution template engine,
// typically with the host application's templating layer.
func WithTemplateEngine(engine TemplateEngine) EngineOption {
	return func(o *engineOptions) { o.templates = engine }
}
