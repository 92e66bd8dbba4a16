// Package host defines the contracts between the table engine and the
// platform that owns the records it displays.
//
// A host hands out [Record] values, executes named flows and page actions
// through a [Dispatcher], creates transient helper records, and delivers
// per-record change notifications through a [Hub]. Notifications carry no
// payload: a subscriber re-fetches the record to discover what changed, and
// a fetch that returns [ErrNotFound] means the record was deleted.
//
// Two implementations ship with the module: [github.com/jacentio/dyntable/host/memhost]
// keeps everything in memory and is used by tests, and
// [github.com/jacentio/dyntable/dynamo] serves records from DynamoDB.
package host
