// Package factory instantiates pluggable modules from configuration. A
// module is named by its type string and carries a raw settings map that
// its factory decodes into a typed struct:
//
//	metrics:
//	  sinks:
//	    - type: influx
//	      conf:
//	        url: http://localhost:8086
//	        bucket: hres
//
// infra/metrics registers the sink factories at init time and
// core/metrics.NewMetricsSink looks them up by type.
package factory
