/*
Package workers sizes worker pools from the CPUs actually available to the
process.

runtime.GOMAXPROCS reflects container CPU quotas, so counts follow the
cgroup limit rather than the host's core count. Task types scale the count:

	workers.ForCPU(8)   // 1x GOMAXPROCS, thumbnail encoding
	workers.ForIO(8)    // 2x GOMAXPROCS
	workers.ForMixed(8) // 1.5x GOMAXPROCS
	workers.ForScan(0)  // folder scans, capped at MaxScanWorkers

Operators can pin the count with SCAN_WORKERS; the pin still respects the
caller's limit. Non-numeric or non-positive values are ignored.
*/
package workers
