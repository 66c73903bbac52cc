// Package ingestion drives a video job through the processing pipeline.
//
// A Pipeline run moves one job through download, upload, transcription,
// notes generation and embeddings, persisting exactly one job write per
// state transition. Download, upload and transcription failures are fatal
// and recorded as the job's fail reason. Notes, per-chunk embedding and
// preview failures are logged and never fail the job.
//
// Runner executes runs on a worker pool fed by a job queue, and Sweeper
// fails jobs left in processing by a crashed or stopped worker.
package ingestion
