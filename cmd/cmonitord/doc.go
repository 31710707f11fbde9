/*
cmonitord watches selected resources for network activity, arbitrates which
one should be active and exposes the surveillance HTTP API.

Usage

The following arguments are understood:

	$ cmonitord -h
	Usage of cmonitord:
	-g, --gns3="localhost": host of the gns3 server
	--gns3-port=3080: port of the gns3 server
	-i, --interval=30s: monitor cycle interval
	-k, --kv="http://localhost:4001": address of kv machine
	-l, --log-level="warn": log level
	-p, --port=18100: listen port
	--probe-cache=0: probe cache ttl, 0 for the default
	-s, --statsd="": statsd address
	-w, --workers=4: concurrent probe workers

HTTP API Endpoints

	/selections
		* GET  - list selections
		* POST - place a resource under surveillance

	/selections/{resourceID}
		* GET    - get a selection
		* DELETE - remove a selection

	/selections/{resourceID}/activate
		* POST - activate the selection and start its nodes

	/selections/{resourceID}/traffic
		* GET - probe the resource now, bypassing the cache

	/traffic
		* GET - traffic summary for all selections

	/active
		* DELETE - deactivate every selection

	/active/next
		* POST - hand the active slot to the next selection by priority

	/monitor
		* GET - monitor loop state

	/monitor/start
	/monitor/stop
		* POST - start or stop the monitor loop, idempotent

	/metrics
		* GET - current metrics
*/
package main
