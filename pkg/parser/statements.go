package parser

import (
	"strconv"
	"strings"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/query"
	"github.com/ringkeep/ringnode/pkg/token"
)

// parseIdentifierList parses "( a , b , c )".
func parseIdentifierList(c *cursor) ([]string, error) {
	if _, err := c.expectKind(token.LParen, "("); err != nil {
		return nil, err
	}
	var names []string
	for {
		name, err := c.expectIdentifier("column name")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if _, ok := c.acceptKind(token.Comma); ok {
			continue
		}
		break
	}
	if _, err := c.expectKind(token.RParen, ")"); err != nil {
		return nil, err
	}
	return names, nil
}

// parseBareIdentifierList parses a comma-separated identifier list with no
// surrounding parens, as in "DELETE col1, col2 FROM ...".
func parseBareIdentifierList(c *cursor) ([]string, error) {
	var names []string
	for {
		name, err := c.expectIdentifier("column name")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if _, ok := c.acceptKind(token.Comma); ok {
			continue
		}
		break
	}
	return names, nil
}

// parseLiteralList parses "( v1 , v2 )".
func parseLiteralList(c *cursor) ([]model.Literal, error) {
	if _, err := c.expectKind(token.LParen, "("); err != nil {
		return nil, err
	}
	var values []model.Literal
	for {
		t, ok := c.next()
		if !ok {
			return nil, errs.Syntax("expected a value, found end of query")
		}
		lit, err := parseLiteral(t)
		if err != nil {
			return nil, err
		}
		values = append(values, lit)
		if _, ok := c.acceptKind(token.Comma); ok {
			continue
		}
		break
	}
	if _, err := c.expectKind(token.RParen, ")"); err != nil {
		return nil, err
	}
	return values, nil
}

// parseUsingTimestamp parses an optional "USING TIMESTAMP <int>" trailer.
func parseUsingTimestamp(c *cursor) (int64, error) {
	if !c.acceptReserved("USING") {
		return 0, nil
	}
	if err := c.expectReserved("TIMESTAMP"); err != nil {
		return 0, err
	}
	t, ok := c.acceptKind(token.IntLiteral)
	if !ok {
		return 0, errs.Syntax("expected an integer timestamp after USING TIMESTAMP")
	}
	ts, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil {
		return 0, errs.Syntax("invalid timestamp %q", t.Text)
	}
	return ts, nil
}

func parseInsert(c *cursor) (*query.InsertQuery, error) {
	if err := c.expectReserved("INTO"); err != nil {
		return nil, err
	}
	ks, table, err := c.expectTableName("table name")
	if err != nil {
		return nil, err
	}
	columns, err := parseIdentifierList(c)
	if err != nil {
		return nil, err
	}
	if err := c.expectReserved("VALUES"); err != nil {
		return nil, err
	}
	values, err := parseLiteralList(c)
	if err != nil {
		return nil, err
	}
	if len(columns) != len(values) {
		return nil, errs.Syntax("INSERT column count (%d) does not match value count (%d)", len(columns), len(values))
	}
	ts, err := parseUsingTimestamp(c)
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &query.InsertQuery{Keyspace: ks, Table: table, Columns: columns, Values: values, TimestampMs: ts}, nil
}

func parseUpdate(c *cursor) (*query.UpdateQuery, error) {
	ks, table, err := c.expectTableName("table name")
	if err != nil {
		return nil, err
	}
	if err := c.expectReserved("SET"); err != nil {
		return nil, err
	}
	var assignments []query.Assignment
	for {
		col, err := c.expectIdentifier("column name")
		if err != nil {
			return nil, err
		}
		if _, err := c.expectOperator("="); err != nil {
			return nil, err
		}
		t, ok := c.next()
		if !ok {
			return nil, errs.Syntax("expected a value after %q =", col)
		}
		val, err := parseLiteral(t)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, query.Assignment{Column: col, Value: val})
		if _, ok := c.acceptKind(token.Comma); ok {
			continue
		}
		break
	}
	if err := c.expectReserved("WHERE"); err != nil {
		return nil, err
	}
	where, err := parseBooleanExpr(c)
	if err != nil {
		return nil, err
	}
	ifClause, err := parseIfClause(c)
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &query.UpdateQuery{Keyspace: ks, Table: table, Assignments: assignments, Where: where, If: ifClause}, nil
}

// parseIfClause parses an optional trailing "IF EXISTS" or "IF <boolean
// expression>" clause shared by UPDATE and DELETE.
func parseIfClause(c *cursor) (*query.BooleanExpr, error) {
	if !c.acceptReserved("IF") {
		return nil, nil
	}
	if c.acceptReserved("EXISTS") {
		expr := query.BooleanExpr{Exists: true}
		return &expr, nil
	}
	expr, err := parseBooleanExpr(c)
	if err != nil {
		return nil, err
	}
	return &expr, nil
}

func parseDelete(c *cursor) (*query.DeleteQuery, error) {
	var columns []string
	if !c.acceptReserved("FROM") {
		cols, err := parseBareIdentifierList(c)
		if err != nil {
			return nil, err
		}
		columns = cols
		if err := c.expectReserved("FROM"); err != nil {
			return nil, err
		}
	}
	ks, table, err := c.expectTableName("table name")
	if err != nil {
		return nil, err
	}
	if err := c.expectReserved("WHERE"); err != nil {
		return nil, err
	}
	where, err := parseBooleanExpr(c)
	if err != nil {
		return nil, err
	}
	ifClause, err := parseIfClause(c)
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &query.DeleteQuery{Keyspace: ks, Table: table, Columns: columns, Where: where, If: ifClause}, nil
}

func parseSelect(c *cursor) (*query.SelectQuery, error) {
	var columns []string
	if t, ok := c.peek(); ok && t.Text == "*" {
		c.pos++
		columns = []string{"*"}
	} else {
		cols, err := parseBareIdentifierList(c)
		if err != nil {
			return nil, err
		}
		columns = cols
	}
	if err := c.expectReserved("FROM"); err != nil {
		return nil, err
	}
	ks, table, err := c.expectTableName("table name")
	if err != nil {
		return nil, err
	}

	if err := c.expectReserved("WHERE"); err != nil {
		return nil, errs.Syntax("SELECT requires a WHERE clause")
	}
	where, err := parseBooleanExpr(c)
	if err != nil {
		return nil, err
	}
	var orderBy query.OrderByClause
	if c.acceptReserved("ORDER") {
		if err := c.expectReserved("BY"); err != nil {
			return nil, err
		}
		orderBy, err = parseOrderBy(c)
		if err != nil {
			return nil, err
		}
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &query.SelectQuery{Keyspace: ks, Table: table, Columns: columns, Where: where, OrderBy: orderBy}, nil
}

func parseUse(c *cursor) (*query.UseQuery, error) {
	name, err := c.expectIdentifier("keyspace name")
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &query.UseQuery{Keyspace: name}, nil
}

func parseIfExists(c *cursor) (bool, error) {
	if !c.acceptReserved("IF") {
		return false, nil
	}
	if err := c.expectReserved("EXISTS"); err != nil {
		return false, err
	}
	return true, nil
}

func parseDropTable(c *cursor) (*query.DropTableQuery, error) {
	ifExists, err := parseIfExists(c)
	if err != nil {
		return nil, err
	}
	ks, name, err := c.expectTableName("table name")
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &query.DropTableQuery{Keyspace: ks, Table: name, IfExists: ifExists}, nil
}

func parseDropKeyspace(c *cursor) (*query.DropKeyspaceQuery, error) {
	ifExists, err := parseIfExists(c)
	if err != nil {
		return nil, err
	}
	name, err := c.expectIdentifier("keyspace name")
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &query.DropKeyspaceQuery{Name: name, IfExists: ifExists}, nil
}

// parsePrimaryKeyClause parses "( pk )" or "( (pk1, pk2), c1, c2 )".
func parsePrimaryKeyClause(c *cursor) (model.PrimaryKeySchema, error) {
	if _, err := c.expectKind(token.LParen, "("); err != nil {
		return model.PrimaryKeySchema{}, err
	}
	var pk model.PrimaryKeySchema
	if _, ok := c.acceptKind(token.LParen); ok {
		for {
			name, err := c.expectIdentifier("partition key column")
			if err != nil {
				return model.PrimaryKeySchema{}, err
			}
			pk.PartitionKeys = append(pk.PartitionKeys, name)
			if _, ok := c.acceptKind(token.Comma); ok {
				continue
			}
			break
		}
		if _, err := c.expectKind(token.RParen, ")"); err != nil {
			return model.PrimaryKeySchema{}, err
		}
	} else {
		name, err := c.expectIdentifier("partition key column")
		if err != nil {
			return model.PrimaryKeySchema{}, err
		}
		pk.PartitionKeys = append(pk.PartitionKeys, name)
	}
	for {
		if _, ok := c.acceptKind(token.Comma); !ok {
			break
		}
		name, err := c.expectIdentifier("clustering column")
		if err != nil {
			return model.PrimaryKeySchema{}, err
		}
		pk.Clustering = append(pk.Clustering, name)
	}
	if _, err := c.expectKind(token.RParen, ")"); err != nil {
		return model.PrimaryKeySchema{}, err
	}
	if len(pk.PartitionKeys) == 0 {
		return model.PrimaryKeySchema{}, errs.Syntax("PRIMARY KEY requires at least one partition key column")
	}
	return pk, nil
}

func stampKeyKinds(columns []model.ColumnSchema, pk model.PrimaryKeySchema) {
	for i := range columns {
		switch {
		case containsName(pk.PartitionKeys, columns[i].Name):
			columns[i].Kind = model.PartitionKey
		case containsName(pk.Clustering, columns[i].Name):
			columns[i].Kind = model.Clustering
		}
	}
}

func containsName(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

func parseCreateTable(c *cursor) (*query.CreateTableQuery, error) {
	ks, name, err := c.expectTableName("table name")
	if err != nil {
		return nil, err
	}
	if _, err := c.expectKind(token.LParen, "("); err != nil {
		return nil, err
	}

	var columns []model.ColumnSchema
	var primaryKey model.PrimaryKeySchema
	sawPrimaryKey := false

	for {
		if c.acceptReserved("PRIMARY") {
			if err := c.expectReserved("KEY"); err != nil {
				return nil, err
			}
			primaryKey, err = parsePrimaryKeyClause(c)
			if err != nil {
				return nil, err
			}
			sawPrimaryKey = true
		} else {
			colName, err := c.expectIdentifier("column name")
			if err != nil {
				return nil, err
			}
			typTok, err := c.expectKind(token.DataTypeWord, "column type")
			if err != nil {
				return nil, err
			}
			dataType, _ := model.ParseDataType(typTok.Text)
			columns = append(columns, model.ColumnSchema{Name: colName, Type: dataType, Kind: model.Regular})
		}
		if _, ok := c.acceptKind(token.Comma); ok {
			continue
		}
		break
	}
	if _, err := c.expectKind(token.RParen, ")"); err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	if !sawPrimaryKey {
		return nil, errs.Syntax("CREATE TABLE requires a PRIMARY KEY clause")
	}
	stampKeyKinds(columns, primaryKey)
	return &query.CreateTableQuery{Keyspace: ks, Table: name, Columns: columns, PrimaryKey: primaryKey}, nil
}

func parseCreateKeyspace(c *cursor) (*query.CreateKeyspaceQuery, error) {
	name, err := c.expectIdentifier("keyspace name")
	if err != nil {
		return nil, err
	}
	if err := c.expectReserved("WITH"); err != nil {
		return nil, err
	}
	if err := c.expectReserved("REPLICATION"); err != nil {
		return nil, err
	}
	if _, err := c.expectOperator("="); err != nil {
		return nil, err
	}
	if _, err := c.expectKind(token.LBrace, "{"); err != nil {
		return nil, err
	}

	var strategy string
	var factor int
	for {
		keyTok, err := c.expectKind(token.TextLiteral, "replication option name")
		if err != nil {
			return nil, err
		}
		if err := c.expectText(":"); err != nil {
			return nil, err
		}
		switch strings.ToLower(token.Unquote(keyTok.Text)) {
		case "class":
			valTok, err := c.expectKind(token.TextLiteral, "replication class")
			if err != nil {
				return nil, err
			}
			strategy = token.Unquote(valTok.Text)
		case "replication_factor":
			valTok, err := c.expectKind(token.IntLiteral, "replication factor")
			if err != nil {
				return nil, err
			}
			n, convErr := strconv.Atoi(valTok.Text)
			if convErr != nil {
				return nil, errs.Syntax("invalid replication_factor %q", valTok.Text)
			}
			factor = n
		default:
			return nil, errs.Syntax("unknown replication option %q", keyTok.Text)
		}
		if _, ok := c.acceptKind(token.Comma); ok {
			continue
		}
		break
	}
	if _, err := c.expectKind(token.RBrace, "}"); err != nil {
		return nil, err
	}
	if strategy == "" {
		return nil, errs.Syntax("CREATE KEYSPACE requires a replication class")
	}
	if factor <= 0 {
		return nil, errs.Syntax("CREATE KEYSPACE requires a positive replication_factor")
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &query.CreateKeyspaceQuery{Name: name, ReplicationStrategy: strategy, ReplicationFactor: factor}, nil
}

func parseAlterTable(c *cursor) (*query.AlterTableQuery, error) {
	ks, table, err := c.expectTableName("table name")
	if err != nil {
		return nil, err
	}
	switch {
	case c.acceptReserved("ADD"):
		colName, err := c.expectIdentifier("column name")
		if err != nil {
			return nil, err
		}
		typTok, err := c.expectKind(token.DataTypeWord, "column type")
		if err != nil {
			return nil, err
		}
		dataType, _ := model.ParseDataType(typTok.Text)
		if err := c.finish(); err != nil {
			return nil, err
		}
		return &query.AlterTableQuery{
			Keyspace: ks,
			Table:    table,
			Action:   query.AlterAdd,
			Column:   model.ColumnSchema{Name: colName, Type: dataType, Kind: model.Regular},
		}, nil
	case c.acceptReserved("RENAME"):
		from, err := c.expectIdentifier("column name")
		if err != nil {
			return nil, err
		}
		if err := c.expectReserved("TO"); err != nil {
			return nil, err
		}
		to, err := c.expectIdentifier("new column name")
		if err != nil {
			return nil, err
		}
		if err := c.finish(); err != nil {
			return nil, err
		}
		return &query.AlterTableQuery{Keyspace: ks, Table: table, Action: query.AlterRename, FromColumn: from, ToColumn: to}, nil
	case c.acceptReserved("REPLACE"):
		colName, err := c.expectIdentifier("column name")
		if err != nil {
			return nil, err
		}
		typTok, err := c.expectKind(token.DataTypeWord, "column type")
		if err != nil {
			return nil, err
		}
		dataType, _ := model.ParseDataType(typTok.Text)
		if err := c.finish(); err != nil {
			return nil, err
		}
		return &query.AlterTableQuery{
			Keyspace: ks,
			Table:    table,
			Action:   query.AlterReplace,
			Column:   model.ColumnSchema{Name: colName, Type: dataType, Kind: model.Regular},
		}, nil
	default:
		t, _ := c.peek()
		return nil, errs.Syntax("expected ADD, RENAME, or REPLACE, found %q", t.Text)
	}
}
