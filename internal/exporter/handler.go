package exporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Registry returns a registry holding c plus the process and Go runtime
// collectors of the exporter itself.
func Registry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Handler serves reg in the Prometheus text format. Scrape errors are logged
// and the rest of the scrape is still served.
func Handler(reg *prometheus.Registry, log logrus.FieldLogger) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      promLogger{log},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// NewMux mounts the metrics handler at path and a liveness probe at /healthz.
func NewMux(path string, reg *prometheus.Registry, log logrus.FieldLogger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(path, Handler(reg, log))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

type promLogger struct {
	log logrus.FieldLogger
}

func (p promLogger) Println(v ...any) {
	p.log.Error(v...)
}
