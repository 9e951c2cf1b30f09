package repository

import (
	"fmt"
	"strings"
)

// versionedTable 版本化表：GroupKeys 相同的行是同一实体的不同版本，
// Order 最大（相同时 id 最大）的行为当前版本，其余视为已被取代
type versionedTable struct {
	Table     string
	GroupKeys []string
	Order     string
}

var (
	homeLatest     = versionedTable{Table: "home", GroupKeys: []string{"label"}, Order: "revision"}
	scheduleLatest = versionedTable{Table: "schedule", GroupKeys: []string{"homeid", "day"}, Order: "revision"}
	profileLatest  = versionedTable{Table: "profile", GroupKeys: []string{"homeid", "profileid"}, Order: "id"}
)

// newerExists anti-join condition: some row of the same group supersedes t
func (s versionedTable) newerExists() string {
	conds := make([]string, 0, len(s.GroupKeys)+1)
	for _, k := range s.GroupKeys {
		conds = append(conds, fmt.Sprintf("n.%s = t.%s", k, k))
	}
	if s.Order == "id" {
		conds = append(conds, "n.id > t.id")
	} else {
		conds = append(conds, fmt.Sprintf("(n.%[1]s > t.%[1]s OR (n.%[1]s = t.%[1]s AND n.id > t.id))", s.Order))
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s n WHERE %s)", s.Table, strings.Join(conds, " AND "))
}

// Query selects only current rows. Columns are qualified with the alias t,
// and where (may be empty) must refer to t as well.
func (s versionedTable) Query(columns []string, where string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = "t." + c
	}
	q := fmt.Sprintf("SELECT %s FROM %s t WHERE NOT %s", strings.Join(cols, ", "), s.Table, s.newerExists())
	if where != "" {
		q += " AND " + where
	}
	return q
}
