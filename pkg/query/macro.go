package query

import (
	"strings"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

const macroDelim = "$$"

// Resolver returns the fragment substituted for a macro name.
type Resolver func(name string) (dbms.Fragment, error)

func isMacroName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// MacroNames returns the distinct macro names in template, in first-seen order.
func MacroNames(template string) []string {
	var names []string
	seen := map[string]bool{}
	walkMacros(template, func(string) {}, func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	return names
}

func walkMacros(template string, literal func(string), macro func(string)) {
	rest := template
	for {
		i := strings.Index(rest, macroDelim)
		if i < 0 {
			literal(rest)
			return
		}
		after := rest[i+len(macroDelim):]
		j := strings.Index(after, macroDelim)
		if j < 0 || !isMacroName(after[:j]) {
			literal(rest[:i+len(macroDelim)])
			rest = after
			continue
		}
		literal(rest[:i])
		macro(after[:j])
		rest = after[j+len(macroDelim):]
	}
}

// ExpandMacros replaces every $$name$$ in template with the fragment
// returned by resolve. Values are carried as bound arguments, never spliced
// into the text.
func ExpandMacros(template string, resolve Resolver) (dbms.Fragment, error) {
	var (
		b    strings.Builder
		args []any
		err  error
	)
	walkMacros(template, func(literal string) {
		b.WriteString(literal)
	}, func(name string) {
		if err != nil {
			return
		}
		var f dbms.Fragment
		f, err = resolve(name)
		if err != nil {
			return
		}
		b.WriteString(f.SQL)
		args = append(args, f.Args...)
	})
	if err != nil {
		return dbms.Fragment{}, err
	}
	return dbms.Fragment{SQL: b.String(), Args: args}, nil
}

// FixedResolver resolves macros from a map and fails for any other name.
func FixedResolver(values map[string]dbms.Fragment) Resolver {
	return func(name string) (dbms.Fragment, error) {
		f, ok := values[name]
		if !ok {
			return dbms.Fragment{}, wdkerr.ModelConfiguration("macro $$%s$$ has no value", name)
		}
		return f, nil
	}
}

// ExpandText replaces every $$name$$ in template with plain text. It is for
// display templates, never for SQL.
func ExpandText(template string, resolve func(name string) (string, error)) (string, error) {
	var (
		b   strings.Builder
		err error
	)
	walkMacros(template, func(literal string) {
		b.WriteString(literal)
	}, func(name string) {
		if err != nil {
			return
		}
		var v string
		v, err = resolve(name)
		b.WriteString(v)
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
