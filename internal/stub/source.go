// Package stub synthesizes the placeholder dylib that resolves symbols the
// rewriter orphaned when it removed a dependency.
package stub

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blacktop/go-macho"
)

const (
	objcClassPrefix = "_OBJC_CLASS_$_"
	functionPrefix  = "_"
)

// Kind classifies how a stub symbol is defined in the generated source.
type Kind int

const (
	// KindClass marks a symbol that becomes an empty subclass of NSObject.
	KindClass Kind = iota
	// KindFunction marks a symbol that becomes an aborting void function.
	KindFunction
)

// Symbol is one exported name the stub must define, with its classification.
type Symbol struct {
	RawName string
	Defined string
	Kind    Kind
}

// ClassificationError reports a symbol name the generator does not know how
// to stub — an unsupported prefix the rewriter treats as fatal.
type ClassificationError struct {
	Name string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("stub: unsupported symbol shape %q", e.Name)
}

// Classify applies the prefix rule from the symbol-shape contract:
// "_OBJC_CLASS_$_<Name>" becomes an empty class, "_<Name>" becomes an
// aborting function, anything else is a generator error.
func Classify(rawName string) (Symbol, error) {
	if strings.HasPrefix(rawName, objcClassPrefix) {
		name := macho.TrimObjCClassSymbol(rawName)
		if name == "" {
			return Symbol{}, &ClassificationError{Name: rawName}
		}
		return Symbol{RawName: rawName, Defined: name, Kind: KindClass}, nil
	}
	if strings.HasPrefix(rawName, functionPrefix) {
		name := strings.TrimPrefix(rawName, functionPrefix)
		if name == "" {
			return Symbol{}, &ClassificationError{Name: rawName}
		}
		return Symbol{RawName: rawName, Defined: name, Kind: KindFunction}, nil
	}
	return Symbol{}, &ClassificationError{Name: rawName}
}

// GenerateSource classifies every name in names and renders Objective-C
// source defining each exactly once. Names are sorted for deterministic
// output across runs (idempotence of auto-remove, per spec §8 property 6).
func GenerateSource(names []string) (string, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var classes, funcs []Symbol
	seen := make(map[string]struct{}, len(sorted))
	for _, n := range sorted {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}

		sym, err := Classify(n)
		if err != nil {
			return "", err
		}
		switch sym.Kind {
		case KindClass:
			classes = append(classes, sym)
		case KindFunction:
			funcs = append(funcs, sym)
		}
	}

	var b strings.Builder
	b.WriteString("// generated by dylibify — do not edit\n")
	b.WriteString("#import <Foundation/Foundation.h>\n")
	b.WriteString("#import <assert.h>\n")
	b.WriteString("#undef NDEBUG\n\n")

	for _, c := range classes {
		fmt.Fprintf(&b, "@interface %s : NSObject\n@end\n@implementation %s\n@end\n\n", c.Defined, c.Defined)
	}
	for _, f := range funcs {
		fmt.Fprintf(&b, "void %s(void) {\n", f.Defined)
		fmt.Fprintf(&b, "    fprintf(stderr, \"dylibify stub called: %s\\n\");\n", f.Defined)
		b.WriteString("    abort();\n")
		b.WriteString("}\n\n")
	}

	return b.String(), nil
}
