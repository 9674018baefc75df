/*
Package metrics exposes the node's Prometheus metrics: role deployment and
ref-count gauges, dispatch latency/error counters, log store append latency
and index gauges, and show-session cache gauges. Metrics register themselves
at package init and scrape via Handler().

Collector polls a Source (typically *dispatch.Node plus its log stores) on
an interval and updates the gauges; it keeps metrics from importing dispatch
(which imports metrics, so that would be a cycle) or logstore, so a Source
implementation adapts its own snapshot types to RoleSnapshot/LogSnapshot.

HealthChecker tracks named component health independently of Prometheus and
backs the /health, /ready, and /live HTTP handlers.
*/
package metrics
