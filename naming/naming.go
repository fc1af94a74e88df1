// Package naming provides the pluggable strategies that derive storage and
// entity names from one another.
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Strategy derives names for entities, tables, columns, keys and
// generated entities. Implementations are pure.
type Strategy interface {
	// TableName returns the storage table of an entity.
	TableName(entity string) string
	// EntityName returns the entity name for a storage table.
	EntityName(table string) string
	// ColumnName returns the storage column of a property.
	ColumnName(property string) string
	// PropertyName joins words into a property name, e.g. ("author", "id").
	PropertyName(words ...string) string
	// KeyName returns the name of a key over columns.
	KeyName(columns ...string) string
	// CrossReferenceEntityName names the junction entity between from and to.
	CrossReferenceEntityName(from, to string) string
	// ConstraintName names the foreign key from one entity to another.
	ConstraintName(from, to, key string) string
}

// Strategy names accepted by ByName.
const (
	CamelName                = "camel"
	SnakeName                = "snake"
	SnakeTableCamelFieldName = "snake_table_camel_field"
)

// ByName returns the strategy registered under name.
func ByName(name string) (Strategy, bool) {
	switch strings.ToLower(name) {
	case "", CamelName:
		return CamelCase{}, true
	case SnakeName:
		return SnakeCase{}, true
	case SnakeTableCamelFieldName:
		return SnakeTableCamel{}, true
	}
	return nil, false
}

// Default is the strategy used when none is configured.
var Default Strategy = CamelCase{}

// CamelCase keeps entity names as table names and joins words in camelCase.
type CamelCase struct{}

// TableName implements Strategy.
func (CamelCase) TableName(entity string) string { return entity }

// EntityName implements Strategy.
func (CamelCase) EntityName(table string) string { return UpperFirst(camelWords(splitWords(table))) }

// ColumnName implements Strategy.
func (CamelCase) ColumnName(property string) string { return property }

// PropertyName implements Strategy.
func (CamelCase) PropertyName(words ...string) string { return camelWords(words) }

// KeyName implements Strategy.
func (CamelCase) KeyName(columns ...string) string { return camelWords(columns) }

// CrossReferenceEntityName implements Strategy.
func (CamelCase) CrossReferenceEntityName(from, to string) string {
	return UpperFirst(camelWords([]string{from, "to", to}))
}

// ConstraintName implements Strategy.
func (CamelCase) ConstraintName(from, to, key string) string {
	return UpperFirst(camelWords([]string{from, "fk", to, key}))
}

// SnakeCase uses snake_case for every generated name.
type SnakeCase struct{}

// TableName implements Strategy.
func (SnakeCase) TableName(entity string) string { return Snake(entity) }

// EntityName implements Strategy.
func (SnakeCase) EntityName(table string) string { return Snake(table) }

// ColumnName implements Strategy.
func (SnakeCase) ColumnName(property string) string { return Snake(property) }

// PropertyName implements Strategy.
func (SnakeCase) PropertyName(words ...string) string { return snakeWords(words) }

// KeyName implements Strategy.
func (SnakeCase) KeyName(columns ...string) string { return snakeWords(columns) }

// CrossReferenceEntityName implements Strategy.
func (SnakeCase) CrossReferenceEntityName(from, to string) string {
	return snakeWords([]string{from, "to", to})
}

// ConstraintName implements Strategy.
func (SnakeCase) ConstraintName(from, to, key string) string {
	return snakeWords([]string{from, "fk", to, key})
}

// SnakeTableCamel names tables in snake_case and properties in camelCase.
type SnakeTableCamel struct{ CamelCase }

// TableName implements Strategy.
func (SnakeTableCamel) TableName(entity string) string { return Snake(entity) }

// ConstraintName implements Strategy.
func (SnakeTableCamel) ConstraintName(from, to, key string) string {
	return Snake(from) + "_fk_" + Snake(to) + "_" + key
}

var (
	rules = ruleset()
	title = cases.Title(language.Und, cases.NoLower)
	fold  = cases.Fold()
)

// acronyms are kept upper-cased by Pascal.
var acronyms = map[string]struct{}{
	"ACL": {}, "API": {}, "ASCII": {}, "CPU": {}, "CSS": {}, "DNS": {},
	"EOF": {}, "GUID": {}, "HTML": {}, "HTTP": {}, "HTTPS": {}, "ID": {},
	"IP": {}, "JSON": {}, "LHS": {}, "QPS": {}, "RAM": {}, "RHS": {},
	"RPC": {}, "SLA": {}, "SMTP": {}, "SQL": {}, "SSH": {}, "TCP": {},
	"TLS": {}, "TTL": {}, "UDP": {}, "UI": {}, "UID": {}, "ULID": {},
	"URI": {}, "URL": {}, "UTF8": {}, "UUID": {}, "VM": {}, "XML": {},
	"XMPP": {}, "XSRF": {}, "XSS": {},
}

func ruleset() *inflect.Ruleset {
	r := inflect.NewDefaultRuleset()
	for w := range acronyms {
		r.AddAcronym(w)
	}
	return r
}

// Normalize returns the canonical form of an entity name: its first
// letter upper-cased, the rest untouched.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(name)
	return title.String(name[:size]) + name[size:]
}

// Fold returns the case-folded form of s, for case-insensitive lookups.
func Fold(s string) string { return fold.String(s) }

// Plural returns the plural form of a word.
func Plural(s string) string { return rules.Pluralize(s) }

// Singular returns the singular form of a word.
func Singular(s string) string { return rules.Singularize(s) }

// UpperFirst upper-cases the first letter of s.
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// LowerFirst lower-cases the first letter of s.
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// Snake converts a camelCase or PascalCase name to snake_case.
//
//	Snake("UserInfo") == "user_info"
//	Snake("HTTPCode") == "http_code"
func Snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is uppercase,
		// and previous is lowercase (cases like: "UserInfo"), or next letter is also
		// a lowercase and previous letter is not "_".
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Pascal converts a snake_case or kebab-case name to PascalCase, keeping
// known acronyms upper-cased.
//
//	Pascal("user_id") == "UserID"
func Pascal(s string) string {
	words := splitWords(s)
	for i, w := range words {
		upper := strings.ToUpper(w)
		if _, ok := acronyms[upper]; ok {
			words[i] = upper
		} else {
			words[i] = rules.Capitalize(w)
		}
	}
	return strings.Join(words, "")
}

// Camel converts a snake_case or kebab-case name to camelCase.
func Camel(s string) string {
	words := splitWords(s)
	if len(words) == 0 {
		return ""
	}
	return strings.ToLower(words[0]) + Pascal(strings.Join(words[1:], "_"))
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
}

func camelWords(words []string) string {
	var b strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(LowerFirst(w))
			continue
		}
		b.WriteString(UpperFirst(w))
	}
	return b.String()
}

func snakeWords(words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			parts = append(parts, Snake(w))
		}
	}
	return strings.Join(parts, "_")
}
