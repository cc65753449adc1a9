package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/config"
)

const historyQuery = `-- History export (entity_id,state,last_changed), input of analyza-spotreby -format history
SELECT
  states_meta.entity_id AS entity_id,
  states.state AS state,
  strftime('%Y-%m-%dT%H:%M:%fZ', COALESCE(states.last_changed_ts, states.last_updated_ts), 'unixepoch') AS last_changed
FROM states
INNER JOIN states_meta ON states.metadata_id = states_meta.metadata_id
WHERE {{filter states_meta.entity_id}}
ORDER BY states.last_updated_ts, states_meta.entity_id;
`

const statesQuery = `
-- Recent states (raw measurements, kept ~2 weeks), -format states
SELECT
  states_meta.entity_id AS sensor_id,
  states.state AS value,
  states.last_updated_ts AS updated_ts
FROM states
INNER JOIN states_meta ON states.metadata_id = states_meta.metadata_id
WHERE {{filter states_meta.entity_id}}
ORDER BY states_meta.entity_id, states.last_updated_ts;
`

const statsQuery = `
-- Long-term statistics (hourly aggregates, kept indefinitely), -format stats
SELECT
  statistics_meta.statistic_id AS sensor_id,
  statistics.start_ts AS start_time,
  statistics.mean AS avg,
  statistics.min AS min_val,
  statistics.max AS max_val
FROM statistics
JOIN statistics_meta ON statistics.metadata_id = statistics_meta.id
WHERE {{filter statistics_meta.statistic_id}}
ORDER BY statistics_meta.statistic_id, statistics.start_ts;
`

func main() {
	entities := flag.String("entities", "", "Comma-separated entity ids (default: every entity ending in a power suffix)")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var ids []string
	for _, id := range strings.Split(*entities, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	fmt.Print(buildQueries(ids, cfg.PowerSuffixes))
}

// buildQueries renders the recorder queries for the three export shapes.
// Explicit entity ids win over suffix matching.
func buildQueries(entityIDs, suffixes []string) string {
	var b strings.Builder
	for _, q := range []string{historyQuery, statesQuery, statsQuery} {
		b.WriteString(expandFilters(q, entityIDs, suffixes))
	}
	return b.String()
}

// expandFilters replaces every {{filter column}} placeholder with the WHERE
// condition on that column.
func expandFilters(query string, entityIDs, suffixes []string) string {
	for {
		start := strings.Index(query, "{{filter ")
		if start < 0 {
			return query
		}
		end := strings.Index(query[start:], "}}")
		if end < 0 {
			return query
		}
		column := strings.TrimSpace(query[start+len("{{filter ") : start+end])
		query = query[:start] + condition(column, entityIDs, suffixes) + query[start+end+2:]
	}
}

func condition(column string, entityIDs, suffixes []string) string {
	if len(entityIDs) > 0 {
		ids := append([]string(nil), entityIDs...)
		sort.Strings(ids)
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = "  " + quote(id)
		}
		return column + " IN (\n" + strings.Join(quoted, "\n  ,") + "\n)"
	}

	likes := make([]string, len(suffixes))
	for i, suf := range suffixes {
		likes[i] = fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, column, quote("%"+escapeLike(suf)))
	}
	return "(" + strings.Join(likes, "\n    OR ") + ")"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// escapeLike escapes the LIKE wildcards of a literal suffix.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}
