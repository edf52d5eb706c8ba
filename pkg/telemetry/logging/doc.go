// Package logging builds the service's structured slog logger.
//
// The logger writes JSON or text, enriches records with the request ID,
// lender and OpenTelemetry trace identifiers found in the context, and masks
// configured borrower attributes:
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	ctx = logging.WithRequestID(ctx, id)
//	logger.InfoContext(ctx, "rule created", "rule_id", r.ID)
package logging
