// Package setting names the persisted user settings.
package setting

// AutoProcessRecordings turns on processing after stop and the background
// reconciliation loop. Absent means false.
const AutoProcessRecordings = "auto_process_recordings"

// Known reports whether key is a setting the server understands.
func Known(key string) bool {
	return key == AutoProcessRecordings
}
