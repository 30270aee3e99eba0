package api

import (
	"strings" // String manipulation

	"gorm.io/gorm" // GORM ORM library
)

// likeEscaper escapes LIKE wildcards with '!', which every supported dialect accepts as an ESCAPE character
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likeContains builds a lower-cased pattern matching term as a literal substring
func likeContains(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// whereContains filters column case-insensitively on a literal substring
func whereContains(query *gorm.DB, column, term string) *gorm.DB {
	return query.Where("LOWER("+column+") LIKE ? ESCAPE '!'", likeContains(term))
}
