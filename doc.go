/*
Package surveillance provides primitives for watching a set of GNS3 projects
and automatically promoting one of them to active based on observed traffic.

Surveillance is a small activation controller. It is a straight forward
implementation targeted at a lab of up to a few dozen candidate projects.

Data Model

A Selection is a project placed under surveillance. It carries a priority
(1 is highest, 5 is lowest), an auto-activate flag, and activity bookkeeping.
At most one Selection is active at any time.

An ActivitySnapshot is the ephemeral result of probing one project's node
interface counters, classified into none/low/medium/high activity levels.

Control Flow

The Monitor runs one cycle per interval: it probes every auto-activate
selection for traffic, writes the activity bookkeeping back to the store,
asks the arbitration policy which selection should be active, and hands any
change to the Activator, which marks the selection active and opens/starts
its project through the GNS3 API.
*/
package surveillance
