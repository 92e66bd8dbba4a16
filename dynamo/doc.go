// Package dynamo serves table records from a single DynamoDB table.
//
// Every record is one item keyed by its ID attribute and tagged with its
// entity name. Items carry an optional numeric "ttl" attribute; an item
// whose TTL is in the past is treated as deleted even before DynamoDB
// removes it. Transient helper records are written with a short TTL so the
// table cleans them up on its own.
//
// Decoded records are kept in an LRU cache. A change notification, usually
// delivered by the stream package, evicts the record before subscribers
// re-fetch it.
package dynamo
