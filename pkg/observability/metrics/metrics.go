package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	syncProcessed      atomic.Int64
	syncSucceeded      atomic.Int64
	syncFailed         atomic.Int64
	syncTerminal       atomic.Int64
	reconcilePulled    atomic.Int64
	reconcileCreated   atomic.Int64
	reconcileUpdated   atomic.Int64
	reconcileUnchanged atomic.Int64
)

func Init() {}

func ObserveTick(processed, succeeded, failed int) {
	syncProcessed.Add(int64(processed))
	syncSucceeded.Add(int64(succeeded))
	syncFailed.Add(int64(failed))
}

func ObserveTerminalFailure() {
	syncTerminal.Add(1)
}

func ObserveReconcile(pulled, created, updated, unchanged int) {
	reconcilePulled.Add(int64(pulled))
	reconcileCreated.Add(int64(created))
	reconcileUpdated.Add(int64(updated))
	reconcileUnchanged.Add(int64(unchanged))
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP shelfgrid_sync_items_processed_total Number of queue items claimed by the processor.\n")
	fmt.Fprintf(w, "# TYPE shelfgrid_sync_items_processed_total counter\n")
	fmt.Fprintf(w, "shelfgrid_sync_items_processed_total %d\n", syncProcessed.Load())

	fmt.Fprintf(w, "# HELP shelfgrid_sync_items_succeeded_total Number of queue items completed successfully.\n")
	fmt.Fprintf(w, "# TYPE shelfgrid_sync_items_succeeded_total counter\n")
	fmt.Fprintf(w, "shelfgrid_sync_items_succeeded_total %d\n", syncSucceeded.Load())

	fmt.Fprintf(w, "# HELP shelfgrid_sync_items_failed_total Number of queue item attempts that failed.\n")
	fmt.Fprintf(w, "# TYPE shelfgrid_sync_items_failed_total counter\n")
	fmt.Fprintf(w, "shelfgrid_sync_items_failed_total %d\n", syncFailed.Load())

	fmt.Fprintf(w, "# HELP shelfgrid_sync_items_terminal_total Number of queue items that exhausted their retries.\n")
	fmt.Fprintf(w, "# TYPE shelfgrid_sync_items_terminal_total counter\n")
	fmt.Fprintf(w, "shelfgrid_sync_items_terminal_total %d\n", syncTerminal.Load())

	fmt.Fprintf(w, "# HELP shelfgrid_reconcile_articles_pulled_total Number of articles pulled during reconciliation.\n")
	fmt.Fprintf(w, "# TYPE shelfgrid_reconcile_articles_pulled_total counter\n")
	fmt.Fprintf(w, "shelfgrid_reconcile_articles_pulled_total %d\n", reconcilePulled.Load())

	fmt.Fprintf(w, "# HELP shelfgrid_reconcile_articles_created_total Number of local entities created from pulled articles.\n")
	fmt.Fprintf(w, "# TYPE shelfgrid_reconcile_articles_created_total counter\n")
	fmt.Fprintf(w, "shelfgrid_reconcile_articles_created_total %d\n", reconcileCreated.Load())

	fmt.Fprintf(w, "# HELP shelfgrid_reconcile_articles_updated_total Number of local entities updated from pulled articles.\n")
	fmt.Fprintf(w, "# TYPE shelfgrid_reconcile_articles_updated_total counter\n")
	fmt.Fprintf(w, "shelfgrid_reconcile_articles_updated_total %d\n", reconcileUpdated.Load())

	fmt.Fprintf(w, "# HELP shelfgrid_reconcile_articles_unchanged_total Number of pulled articles that matched local state.\n")
	fmt.Fprintf(w, "# TYPE shelfgrid_reconcile_articles_unchanged_total counter\n")
	fmt.Fprintf(w, "shelfgrid_reconcile_articles_unchanged_total %d\n", reconcileUnchanged.Load())
}
