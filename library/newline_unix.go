//go:build !windows

package library

const lineEnding = "\n"
