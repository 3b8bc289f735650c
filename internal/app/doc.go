// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle (load a program, run
// it, propagate feedback and report the summarized problem), decoupled
// from any specific entrypoint like a CLI.
package app
