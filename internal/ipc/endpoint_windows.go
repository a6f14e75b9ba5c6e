//go:build windows

package ipc

import "regexp"

var pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\trayhop-[a-z0-9._-]{1,128}$`)

const defaultPipePrefix = `\\.\pipe\trayhop-`

func defaultEndpointFor(username string) string {
	return defaultPipePrefix + username
}

func endpointAllowed(value string) bool {
	return pipeNamePattern.MatchString(value)
}
