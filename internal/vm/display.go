package vm

import "corelang/internal/value"

// displayString renders a value for `print`/`println` (OpPrintAnyNoNewline):
// unquoted for String/Char, Repr for everything else, matching the usual
// print-vs-repr split (printing "hi" shows hi, repr("hi") shows "hi").
func displayString(v value.Value) string {
	switch v.Tag {
	case value.TagString:
		return v.Str()
	case value.TagChar:
		return string(v.Char())
	default:
		return value.Repr(v)
	}
}
