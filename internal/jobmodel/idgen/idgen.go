// Package idgen generates the opaque identifiers for jobs, groups, and
// workers. Job ids are bare uuidv4 strings; group and worker ids carry
// a human-readable prefix over 8 hex characters of a uuidv4, matching
// shared/schemas.py's generate_job_id/generate_group_id/generate_worker_id
// in the original Python service.
package idgen

import "github.com/google/uuid"

// Job returns a fresh job id.
func Job() string {
	return uuid.New().String()
}

// Group returns a fresh group id.
func Group() string {
	return "group-" + short()
}

// Worker returns a fresh worker id.
func Worker() string {
	return "worker-" + short()
}

func short() string {
	return uuid.New().String()[:8]
}
