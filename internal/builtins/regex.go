package builtins

import (
	"regexp"

	"corelang/internal/errsys"
	"corelang/internal/value"
)

// No repository in the retrieval pack imports a third-party regex engine;
// stdlib regexp already gives RE2 semantics plus named groups, which is
// everything regex_compile/regex_match/regex_eachmatch need.

func RegexCompile(pattern value.Value) (value.Value, *errsys.Error) {
	src := pattern.Str()
	re, err := regexp.Compile(src)
	if err != nil {
		return value.Nothing, errsys.New(errsys.DomainError, "invalid regex: "+err.Error(), errsys.Span{})
	}
	return value.MakeRegex(&value.Regex{Source: src, Pattern: re}), nil
}

func matchToValue(re *regexp.Regexp, s string, loc []int) value.Value {
	names := re.SubexpNames()
	groups := make([]string, len(loc)/2)
	offsets := make([][2]int, len(loc)/2)
	groupNames := make([]string, len(loc)/2)
	for i := 0; i < len(loc)/2; i++ {
		start, end := loc[2*i], loc[2*i+1]
		offsets[i] = [2]int{start, end}
		if start < 0 {
			groups[i] = ""
			continue
		}
		groups[i] = s[start:end]
		if i < len(names) {
			groupNames[i] = names[i]
		}
	}
	return value.MakeRegexMatch(&value.RegexMatch{
		Whole:   groups[0],
		Groups:  groups[1:],
		Names:   groupNames[1:],
		Offsets: offsets,
	})
}

func RegexMatch(rv, sv value.Value) (value.Value, *errsys.Error) {
	if rv.Tag != value.TagRegex {
		return value.Nothing, errsys.New(errsys.TypeError, "regex_match: first argument must be a Regex", errsys.Span{})
	}
	re := rv.Regex().Pattern
	s := sv.Str()
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return value.Nothing, nil
	}
	return matchToValue(re, s, loc), nil
}

func RegexEachmatch(rv, sv value.Value) (value.Value, *errsys.Error) {
	if rv.Tag != value.TagRegex {
		return value.Nothing, errsys.New(errsys.TypeError, "regex_eachmatch: first argument must be a Regex", errsys.Span{})
	}
	re := rv.Regex().Pattern
	s := sv.Str()
	locs := re.FindAllStringSubmatchIndex(s, -1)
	out := value.NewArray(value.ElemBoxed, []int{len(locs)})
	for i, loc := range locs {
		out.Set(i, matchToValue(re, s, loc))
	}
	return value.MakeArray(out), nil
}
