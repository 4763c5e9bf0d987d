// Package main hosts the podcast digest service entrypoint.
//
// Architecture overview:
//   - HTTP: internal/web.Server renders the single summary page, accepts feed submissions on POST /submit and
//     exposes /api/podcasts, /api/submissions, /healthz, /readyz and /metrics.
//   - Read path: every page view syncs the record store from the spreadsheet mirror (CSV export, cached for the
//     configured TTL), loads the title-keyed catalog and renders the selected record.
//   - Write path: a submission is checked as a feed, processed by the remote summarization function, created under
//     a fresh name in the record store and appended to the spreadsheet. The ledger and Pub/Sub notification are
//     best effort.
//   - Record store: a local directory guarded by a file lock, or a GCS bucket prefix. Exclusive creates keep
//     concurrent submissions from overwriting each other.
//   - Configuration & plumbing: godotenv and Viper populate config from .env, env vars and an optional YAML file;
//     zap provides structured logging; Prometheus metrics are exported via the metrics middleware.
//
// Quick checklist:
//   - Required: PODCAST_SHEETS_URL, PODCAST_SHEETS_CREDENTIALS_JSON (or _FILE) and PODCAST_PROCESSOR_ENDPOINT.
//   - Optional: PODCAST_STORE_BACKEND=gcs with PODCAST_STORE_GCS_BUCKET, PODCAST_DB_DSN for the ledger,
//     PODCAST_PUBSUB_PROJECT_ID and PODCAST_PUBSUB_TOPIC_NAME for notifications.
//   - Run locally: go run ./cmd/podcastdigest -config config.yaml (or rely solely on env overrides).
package main
