// Package audit re-checks the stored rule set.
//
// The create path keeps the store free of invalid, duplicate and
// overlapping rules, but rows written around it (manual inserts, older
// releases with different field domains) are not checked. An audit pass
// re-validates every rule against the current catalog, recomputes its
// regions and re-runs conflict detection within each lender. Findings are
// logged and exported as gauges. Scheduler runs passes on a cron schedule.
package audit
