// Package cli is the fieldsync command-line client.
//
// Every command shares one App: the local SQLite cache, the gRPC transport
// and the calendar and import services built on them. Commands can run one
// at a time from the shell or inside the interactive "shell", which also
// watches server connectivity and replays offline mutations on reconnect.
//
//	fieldsync import --program SIH-ACTIFLOT --period 1y
//	fieldsync list --year 2024
//	fieldsync save --file calendar.json
//	fieldsync sync --all
//	fieldsync delete -5
//	fieldsync trash restore <trash-id>
//	fieldsync shell
package cli
