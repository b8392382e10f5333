// Package output persists simulation events.
//
// Sinks are event handlers that also own an external resource: a JSON lines
// file, a Parquet file or a Kafka topic. Finished files can be uploaded to
// S3 under a per-run key prefix.
package output
