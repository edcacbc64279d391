// Package logging is the leveled printf-style logger used across the
// catalog.
//
// Levels are DEBUG, INFO, WARN, ERROR and FATAL; FATAL exits the process.
// LOG_LEVEL selects the level and DEBUG=true forces DEBUG. Output goes to
// stderr, and SetOutputFile tees it to a size-rotated file.
package logging
