package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/config"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

// lastChangedLayout matches the CSV export of the Home Assistant history UI.
const lastChangedLayout = "2006-01-02T15:04:05.000Z"

type record struct {
	entityID    string
	state       string
	lastChanged time.Time
}

type options struct {
	url      string
	token    string
	entities []string
	days     int
	output   string
	suffixes []string
}

func main() {
	urlFlag := flag.String("url", "", "Home Assistant base URL (overrides HA_URL)")
	tokenFlag := flag.String("token", "", "Long-lived access token (overrides HA_TOKEN)")
	entities := flag.String("entities", "", "Comma-separated entity ids (default: all power entities)")
	days := flag.Int("days", 7, "Days to fetch on first run (ignored if output file has data)")
	output := flag.String("output", "history.csv", "Output CSV path")
	flag.Parse()

	logCfg := zap.NewDevelopmentConfig()
	logCfg.DisableStacktrace = true
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	loadDotEnv(".env")

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	opts := options{
		url:      resolveFlag(*urlFlag, "HA_URL"),
		token:    resolveFlag(*tokenFlag, "HA_TOKEN"),
		entities: splitList(*entities),
		days:     *days,
		output:   *output,
		suffixes: cfg.PowerSuffixes,
	}
	if err := run(opts, &http.Client{Timeout: 30 * time.Second}, logger); err != nil {
		logger.Fatal("fetch failed", zap.Error(err))
	}
}

func run(opts options, client *http.Client, logger *zap.Logger) error {
	if opts.url == "" {
		return errors.New("HA_URL not set; use -url or set HA_URL in .env")
	}
	if opts.token == "" {
		return errors.New("HA_TOKEN not set; use -token or set HA_TOKEN in .env")
	}

	f := &fetcher{
		client:  client,
		baseURL: strings.TrimRight(opts.url, "/"),
		token:   opts.token,
		log:     logger,
		sleep:   time.Sleep,
	}

	entityIDs := opts.entities
	if len(entityIDs) == 0 {
		var err error
		entityIDs, err = f.powerEntities(opts.suffixes)
		if err != nil {
			return fmt.Errorf("listing entities: %w", err)
		}
	}
	if len(entityIDs) == 0 {
		return errors.New("no power entities found")
	}
	logger.Info("fetching entities", zap.Strings("entities", entityIDs))

	existing, latest := loadExistingRecords(opts.output)

	var startTime time.Time
	if !latest.IsZero() {
		startTime = latest.Add(-1 * time.Minute)
		logger.Info("resuming from latest timestamp minus 1min overlap", zap.Time("start", startTime))
	} else {
		startTime = time.Now().AddDate(0, 0, -opts.days)
		logger.Info("first run", zap.Int("days", opts.days), zap.Time("start", startTime))
	}

	newRecords, err := f.fetchRange(startTime, time.Now(), entityIDs)
	if err != nil {
		return err
	}

	merged := mergeRecords(existing, newRecords)

	if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeCSV(opts.output, merged); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}

	logger.Info("wrote records",
		zap.String("output", opts.output),
		zap.Int("total", len(merged)),
		zap.Int("existing", len(existing)),
		zap.Int("fetched", len(newRecords)))
	return nil
}

// loadDotEnv reads a .env file and sets variables not already in the environment.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return // silently skip if .env doesn't exist
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, val)
		}
	}
}

func resolveFlag(flagVal, envKey string) string {
	if flagVal != "" {
		return flagVal
	}
	return os.Getenv(envKey)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadExistingRecords reads a previous output file. It returns the records
// and the latest last_changed among them.
func loadExistingRecords(path string) ([]record, time.Time) {
	var latest time.Time

	f, err := os.Open(path)
	if err != nil {
		return nil, latest
	}
	defer f.Close()

	cr := csv.NewReader(f)
	// skip header
	if _, err := cr.Read(); err != nil {
		return nil, latest
	}

	var records []record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(row) < 3 {
			continue
		}

		ts, err := time.Parse(time.RFC3339Nano, row[2])
		if err != nil {
			continue
		}

		records = append(records, record{
			entityID:    row[0],
			state:       row[1],
			lastChanged: ts,
		})
		if ts.After(latest) {
			latest = ts
		}
	}

	return records, latest
}

type fetcher struct {
	client  *http.Client
	baseURL string
	token   string
	log     *zap.Logger
	sleep   func(time.Duration)
}

// powerEntities lists the entities of /api/states whose id ends with one of
// the power suffixes.
func (f *fetcher) powerEntities(suffixes []string) ([]string, error) {
	if len(suffixes) == 0 {
		suffixes = model.DefaultPowerSuffixes
	}

	body, err := f.get(f.baseURL + "/api/states")
	if err != nil {
		return nil, err
	}

	var states []struct {
		EntityID string `json:"entity_id"`
	}
	if err := json.Unmarshal(body, &states); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	var ids []string
	for _, s := range states {
		if model.HasAnySuffix(s.EntityID, suffixes) {
			ids = append(ids, s.EntityID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// fetchRange fetches [start, end) one day at a time.
func (f *fetcher) fetchRange(start, end time.Time, entityIDs []string) ([]record, error) {
	var records []record
	for day := start; day.Before(end); day = day.Add(24 * time.Hour) {
		dayEnd := day.Add(24 * time.Hour)
		if dayEnd.After(end) {
			dayEnd = end
		}

		dayRecords, err := f.fetchDay(day, dayEnd, entityIDs)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", day.Format("2006-01-02"), err)
		}
		records = append(records, dayRecords...)
		f.log.Info("fetched day", zap.String("day", day.Format("2006-01-02")), zap.Int("records", len(dayRecords)))

		if dayEnd.Before(end) {
			f.sleep(500 * time.Millisecond)
		}
	}
	return records, nil
}

func (f *fetcher) fetchDay(start, end time.Time, entityIDs []string) ([]record, error) {
	q := url.Values{}
	q.Set("end_time", end.Format(time.RFC3339))
	q.Set("filter_entity_id", strings.Join(entityIDs, ","))
	u := fmt.Sprintf("%s/api/history/period/%s?%s&minimal_response&no_attributes",
		f.baseURL,
		url.PathEscape(start.Format(time.RFC3339)),
		q.Encode(),
	)

	var body []byte
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		body, err = f.get(u)
		if err == nil {
			break
		}
		if isRetryable(err) {
			wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			f.log.Warn("retrying", zap.Duration("wait", wait), zap.Error(err))
			f.sleep(wait)
			continue
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("after 5 attempts: %w", err)
	}

	return parseHistoryResponse(body)
}

type apiError struct {
	statusCode int
	message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.statusCode, e.message)
}

func isRetryable(err error) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return true // network errors are retryable
	}
	return ae.statusCode == http.StatusTooManyRequests || ae.statusCode >= 500
}

func (f *fetcher) get(u string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &apiError{statusCode: resp.StatusCode, message: "authentication failed, check your HA_TOKEN"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{statusCode: resp.StatusCode, message: string(body)}
	}
	return body, nil
}

// parseHistoryResponse parses the HA history API response.
// Format: array of arrays. Each inner array is one entity's history.
// With minimal_response, only the first entry has entity_id. States are
// kept as reported; the analysis drops non-numeric ones itself.
func parseHistoryResponse(data []byte) ([]record, error) {
	var outer [][]json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	var records []record
	for _, entityHistory := range outer {
		var currentEntityID string
		for _, raw := range entityHistory {
			var entry struct {
				EntityID    string `json:"entity_id"`
				State       string `json:"state"`
				LastChanged string `json:"last_changed"`
			}
			if err := json.Unmarshal(raw, &entry); err != nil {
				continue
			}

			if entry.EntityID != "" {
				currentEntityID = entry.EntityID
			}
			if currentEntityID == "" || entry.State == "" {
				continue
			}

			ts, err := time.Parse(time.RFC3339Nano, entry.LastChanged)
			if err != nil {
				continue
			}

			records = append(records, record{
				entityID:    currentEntityID,
				state:       entry.State,
				lastChanged: ts.UTC(),
			})
		}
	}

	return records, nil
}

func mergeRecords(existing, new []record) []record {
	type key struct {
		entityID string
		ts       int64
	}

	seen := make(map[key]record, len(existing)+len(new))
	for _, r := range existing {
		seen[key{r.entityID, r.lastChanged.UnixMilli()}] = r
	}
	for _, r := range new {
		seen[key{r.entityID, r.lastChanged.UnixMilli()}] = r // new overwrites existing on conflict
	}

	merged := make([]record, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].lastChanged.Equal(merged[j].lastChanged) {
			return merged[i].lastChanged.Before(merged[j].lastChanged)
		}
		return merged[i].entityID < merged[j].entityID
	})

	return merged
}

func writeCSV(path string, records []record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"entity_id", "state", "last_changed"}); err != nil {
		return err
	}

	for _, r := range records {
		if err := w.Write([]string{
			r.entityID,
			r.state,
			r.lastChanged.UTC().Format(lastChangedLayout),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
