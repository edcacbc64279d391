// Package paths provides the folder and file identity types used by the
// catalog.
//
// Folder text keeps its original casing but equality, ordering and map keys
// use a case-folded form in which '\' and '/' are interchangeable. Trailing
// separators are stripped except for bare roots ("/", "C:\").
package paths
