// Package search parses catalog queries and matches them against catalog
// items.
//
// Query text is split by Tokenize into fragments, classified by Parse into
// typed Terms (text, value, date, location, media type, has-type, extension,
// duplicate) and folder Selectors, and evaluated by a Matcher.
//
// # Query Syntax
//
//	Christmas             free text across titles, tags, camera fields, ...
//	"two words"           quoted text, no heuristics
//	#vacation             tag
//	@photo @duplicates    media group or flag
//	rating: >3            property with a relational modifier
//	created: 2023-dec-25  partial or full date
//	age: 7                created within the last 7 days
//	loc: 51.5,-0.1,5      within 5 km
//	f/2.8  ISO400  1:30   camera and duration notations
//	ext: jpg              extension
//	related: /a/b.jpg     files similar to b.jpg
//	-word  !word          negation
//	a (b or c)            grouping; and/& and or/| combine left to right
//
// Grouping is positional: each term records how many groups it opens and
// closes. The Matcher builds an expression tree from those counts. Groups
// left open are closed at the end of the query and surplus closes are
// ignored.
//
// # Bloom Pre-filter
//
// Search.Bloom returns the bits a file must carry to possibly match. The
// Matcher rejects files whose signature lacks them before evaluating any
// term.
package search
