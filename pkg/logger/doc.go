// Package logger builds *slog.Logger values with functional options and
// provides attribute constructors with consistent key names.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "mfa"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.WarnContext(ctx, "verification failed",
//	    logger.UserID(userID),
//	    logger.Method("totp"),
//	)
//
// Context extractors run on every record, so request scoped values are
// always current. Error, UserID and Method return an empty attribute for
// zero values, which slog omits.
//
// Never log secrets, codes or ciphertext.
package logger
