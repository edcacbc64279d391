package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Part is one fragment of query text.
type Part struct {
	Scope     string
	Term      string
	Modifiers Modifiers
	// Literal is set when the term was quoted.
	Literal bool
}

// HasScope reports whether the fragment carries a scope prefix.
func (p Part) HasScope() bool { return p.Scope != "" }

type tokenizer struct {
	parts     []Part
	cur       Part
	term      strings.Builder
	quote     rune
	parens    int
	pendingOp LogicalOp
}

// Tokenize splits query text into fragments. It never fails; malformed
// input degrades to a best-effort split. Parenthesis counts are recorded
// on the fragments but not balanced. A single '&' or '|' between letters
// is part of the word; use "&&", "||" or spaces to combine terms.
func Tokenize(text string) []Part {
	tk := &tokenizer{}
	tk.reset()

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		if tk.quote != 0 {
			if r == tk.quote {
				tk.quote = 0
			} else {
				tk.term.WriteRune(r)
			}
			continue
		}

		atStart := tk.term.Len() == 0 && !tk.cur.Literal

		switch {
		case unicode.IsSpace(r):
			if tk.term.Len() > 0 || tk.cur.Literal {
				tk.flush()
			}
		case (r == '"' || r == '\'') && atStart:
			tk.quote = r
			tk.cur.Literal = true
		case r == '#' && atStart && tk.cur.Scope == "":
			tk.cur.Scope = "tag"
		case r == '@' && atStart && tk.cur.Scope == "":
			tk.cur.Scope = "@"
		case r == ':' && tk.isScopeColon():
			tk.cur.Scope = tk.term.String()
			tk.term.Reset()
		case (r == '-' || r == '!') && atStart:
			if r == '-' && tk.cur.Scope != "" && isDigit(next) {
				tk.term.WriteRune(r)
			} else {
				tk.cur.Modifiers.Positive = !tk.cur.Modifiers.Positive
			}
		case r == '<' && atStart:
			tk.cur.Modifiers.LessThan = true
		case r == '>' && atStart:
			tk.cur.Modifiers.GreaterThan = true
		case r == '=' && atStart:
			tk.cur.Modifiers.Equals = true
		case r == '(' && atStart:
			tk.cur.Modifiers.BeginGroup++
		case r == '(':
			tk.parens++
			tk.term.WriteRune(r)
		case r == ')':
			tk.closeParen(r)
		case (r == '&' || r == '|') && isOperatorAt(tk.term.Len() == 0, r, next):
			op := OpAnd
			if r == '|' {
				op = OpOr
			}
			if next == r {
				i++
			}
			if tk.term.Len() > 0 || tk.cur.Literal {
				tk.flush()
			}
			tk.pendingOp = op
		default:
			tk.term.WriteRune(r)
		}
	}

	if tk.term.Len() > 0 || tk.cur.Literal || tk.cur.Scope != "" {
		tk.flush()
	}
	return tk.parts
}

func (tk *tokenizer) reset() {
	tk.cur = Part{Modifiers: DefaultModifiers()}
	tk.term.Reset()
	tk.parens = 0
}

// isScopeColon reports whether a ':' ends a scope word. Numeric text before
// the colon ("1:30", "12:30:") or a single character ("C:") keeps it as
// content.
func (tk *tokenizer) isScopeColon() bool {
	if tk.cur.Scope != "" || tk.cur.Literal || tk.term.Len() == 0 {
		return false
	}
	s := tk.term.String()
	if utf8.RuneCountInString(s) == 1 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	return !isDigit(first)
}

func (tk *tokenizer) closeParen(r rune) {
	if tk.parens > 0 {
		tk.parens--
		tk.term.WriteRune(r)
		return
	}
	if tk.term.Len() > 0 || tk.cur.Literal || tk.cur.Scope != "" {
		tk.cur.Modifiers.EndGroup++
		return
	}
	if n := len(tk.parts); n > 0 {
		tk.parts[n-1].Modifiers.EndGroup++
	}
}

func (tk *tokenizer) flush() {
	term := tk.term.String()
	if !tk.cur.Literal && tk.cur.Scope == "" && tk.cur.Modifiers == DefaultModifiers() {
		switch strings.ToLower(term) {
		case "and", "&&":
			tk.pendingOp = OpAnd
			tk.reset()
			return
		case "or", "||":
			tk.pendingOp = OpOr
			tk.reset()
			return
		}
	}

	tk.cur.Term = term
	tk.cur.Modifiers.Op = tk.pendingOp
	tk.pendingOp = OpAnd
	tk.parts = append(tk.parts, tk.cur)
	tk.reset()
}

// isOperatorAt reports whether '&' or '|' acts as an operator. Inside a
// word ("R&B", "AC|DC") a single one is literal; doubled, or at either edge
// of a word, it is an operator.
func isOperatorAt(wordStart bool, r, next rune) bool {
	return wordStart || next == r || next == 0 || unicode.IsSpace(next) || next == '('
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
