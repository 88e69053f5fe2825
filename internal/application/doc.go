// Package application wires a test session: the merged configuration, the
// logger and the API client built from it. A Session is created once at
// session start and closed at session end; nothing here is global.
package application
