// Package config compiles boardsync.cue into runtime settings.
//
// The file is unified with an embedded CUE schema that supplies defaults
// and rejects unknown fields:
//
//	alphabet: {
//		digits: "0123456789"
//		positive: {first: "a", last: "j"}
//		negative: {first: "A", last: "J"}
//	}
//	jitter: 2
//	store: path: "scenes.db"
//	log: level: "debug"
//
// Every failure is reported as a *CompileError carrying the CUE source
// position when one is known.
package config
