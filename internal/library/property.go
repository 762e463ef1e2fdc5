package library

import "fmt"

// PropertyName identifies a Runtime-owned, script-shared Variant.
type PropertyName struct {
	Visibility Visibility
	ReadOnly   bool
	Library    string
	Name       string
	id         uint64
	idValid    bool
}

// Id is hashed from (library, name) only — visibility and read-only
// flags do not participate, so toggling them does not change identity.
func (p *PropertyName) Id() uint64 {
	if !p.idValid {
		p.id = hashString(p.Library + "." + p.Name)
		p.idValid = true
	}
	return p.id
}

func (p *PropertyName) String() string {
	return fmt.Sprintf("%s.%s", p.Library, p.Name)
}

// wordCount is the number of space-separated words in the name,
// used by Library to bound the parser's multi-word lookup.
func wordCount(s string) int {
	n := 1
	for _, r := range s {
		if r == ' ' {
			n++
		}
	}
	return n
}
