// Package sync defines the synchronization domain: schedulable SyncJob
// aggregates linking a data mapping and two connectors, SyncRun execution
// records with per-record error accounting, the job statistics aggregate, and
// the transport port concrete vendor adapters implement.
package sync
