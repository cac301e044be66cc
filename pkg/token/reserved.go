package token

import "strings"

// reservedWords is the lexer's keyword table, including the DESC/ORDER BY
// boundary words.
var reservedWords = map[string]bool{
	"SELECT": true, "INSERT": true, "ALTER": true, "ADD": true, "AND": true,
	"ASC": true, "AS": true, "BATCH": true, "BY": true, "CREATE": true,
	"DELETE": true, "DESC": true, "DISTINCT": true, "DROP": true, "FROM": true,
	"IF": true, "INTO": true, "KEY": true, "KEYS": true, "KEYSPACE": true,
	"KEYSPACES": true, "NOT": true, "NULL": true, "OR": true, "PRIMARY": true,
	"RENAME": true, "REPLACE": true, "SET": true, "TABLE": true, "TO": true,
	"TRUNCATE": true, "UPDATE": true, "USE": true, "USING": true, "VALUES": true,
	"WHERE": true, "WITH": true, "ORDER": true, "REPLICATION": true, "EXISTS": true,
}

// IsReserved reports whether word (case-insensitively) is a reserved
// keyword of the query language.
func IsReserved(word string) bool {
	return reservedWords[strings.ToUpper(word)]
}
