// Package metrics exposes a Prometheus exposition endpoint backed by
// VictoriaMetrics/metrics rather than a hand-rolled registry.
package metrics

import (
	"fmt"
	"net/http"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/ryanrussell/dragonfly/internal/runtime"
	"github.com/ryanrussell/dragonfly/lib/logger"
)

var set = vm.NewSet()

// CommandsTotal increments dragonfly_commands_total{command="..."},
// called once per dispatched command from server.execCommand.
func CommandsTotal(name string) {
	set.GetOrCreateCounter(fmt.Sprintf(`dragonfly_commands_total{command=%q}`, name)).Inc()
}

// CommandErrorsTotal increments dragonfly_command_errors_total{command="..."}.
func CommandErrorsTotal(name string) {
	set.GetOrCreateCounter(fmt.Sprintf(`dragonfly_command_errors_total{command=%q}`, name)).Inc()
}

// registerGauges installs the runtime-derived gauges once; every
// scrape re-reads rt's live state rather than a cached value.
func registerGauges(rt *runtime.Runtime) {
	set.GetOrCreateGauge("dragonfly_keyspace_keys", func() float64 {
		var total float64
		for i := 0; i < rt.Databases(); i++ {
			total += float64(rt.Shards.DBSize(i))
		}
		return total
	})
	set.GetOrCreateGauge("dragonfly_shards", func() float64 {
		return float64(rt.Shards.Size())
	})
	set.GetOrCreateGauge("dragonfly_replication_sessions", func() float64 {
		return float64(rt.DflyCmd.SessionCount())
	})
}

// Serve blocks, running an HTTP server that exposes /metrics on addr.
// Run it on its own goroutine.
func Serve(addr string, rt *runtime.Runtime) {
	registerGauges(rt)
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		set.WritePrometheus(w)
	})
	logger.Infof("metrics: listening on %s", addr)
	srv := &http.Server{Addr: addr, Handler: mux}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Errorf("metrics: %v", err)
	}
}
