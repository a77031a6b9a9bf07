// Package analytics records usage events. Events go to a no-op sink, the
// structured log, or a Kafka topic. Tracking never fails the caller: sink
// errors are logged and dropped.
package analytics
