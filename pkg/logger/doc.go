// Package logger builds *slog.Logger instances for the sync client and
// provides attribute helpers so every component logs with the same keys.
//
// New applies a list of Option values (format, level, output, static
// attributes, context extractors) and wraps the resulting handler with
// LogHandlerDecorator, which pulls request-scoped values out of the context
// on every Handle call.
//
//	log := logger.New(
//	    logger.WithFormat(logger.FormatText),
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithAttr(logger.Component("notifytail")),
//	)
//	log.Info("connected", logger.UserID("u-1"), logger.Transport("websocket"))
//
// Error returns an empty attribute for a nil error, so it can be passed
// unconditionally:
//
//	log.Warn("send failed", logger.Error(err))
package logger
