package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"moneyflow/internal/core"
	"moneyflow/internal/notify"
	"moneyflow/internal/storage"
)

// rateResponse is the wire shape of the rate feed: rates keyed by
// currency code, valid only when result reads "success".
type rateResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// Fetcher pulls a fresh rate table from an HTTP feed.
type Fetcher struct {
	client   *http.Client
	endpoint string
}

func NewFetcher(endpoint string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
	}
}

// Fetch requests the feed for the given base currency. The endpoint is
// expected to serve the table at <endpoint>/<base>.
func (f *Fetcher) Fetch(ctx context.Context, base string) (core.RateTable, error) {
	url := fmt.Sprintf("%s/%s", f.endpoint, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.RateTable{}, fmt.Errorf("building rate request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return core.RateTable{}, fmt.Errorf("fetching rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.RateTable{}, fmt.Errorf("fetching rates: unexpected status %d: %w", resp.StatusCode, core.ErrRateFetch)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return core.RateTable{}, fmt.Errorf("reading rate response: %w", err)
	}
	var parsed rateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return core.RateTable{}, fmt.Errorf("decoding rate response: %w", err)
	}
	if parsed.Result != "success" || len(parsed.Rates) == 0 {
		return core.RateTable{}, fmt.Errorf("rate feed returned %q: %w", parsed.Result, core.ErrRateFetch)
	}
	return core.RateTable{
		Base:       base,
		Rates:      parsed.Rates,
		LastUpdate: time.Now(),
	}, nil
}

// RateSource is the fetch seam the service depends on; tests substitute
// a stub.
type RateSource interface {
	Fetch(ctx context.Context, base string) (core.RateTable, error)
}

// Service owns the current rate table. Refresh swaps the whole table on
// success and leaves it untouched on failure; the table is never
// partially overwritten.
type Service struct {
	mu     sync.Mutex
	table  core.RateTable
	source RateSource
	kv     storage.Store
	center *notify.Center
}

func NewService(source RateSource, kv storage.Store, center *notify.Center) *Service {
	return &Service{
		table:  DefaultRates(),
		source: source,
		kv:     kv,
		center: center,
	}
}

// Init restores the last persisted table, keeping the built-in defaults
// when nothing usable was stored.
func (s *Service) Init(ctx context.Context) {
	blob, ok, err := s.kv.Load(ctx, storage.KeyExchangeRates)
	if err != nil || !ok {
		return
	}
	var stored core.RateTable
	if err := json.Unmarshal(blob, &stored); err != nil || len(stored.Rates) == 0 {
		slog.WarnContext(ctx, "Stored rate table unusable, keeping defaults", "error", err)
		return
	}
	s.mu.Lock()
	s.table = stored
	s.mu.Unlock()
}

// Table returns a copy of the current rate table.
func (s *Service) Table() core.RateTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.table
	out.Rates = make(map[string]float64, len(s.table.Rates))
	for k, v := range s.table.Rates {
		out.Rates[k] = v
	}
	return out
}

// Convert translates an amount using the current table.
func (s *Service) Convert(amount core.Money, from, to string) core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Convert(s.table, amount, from, to)
}

// Refresh fetches a new table. On success the table and timestamp are
// replaced wholesale and persisted; on failure the previous table stays
// in place and the error is reported.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	base := s.table.Base
	s.mu.Unlock()

	fresh, err := s.source.Fetch(ctx, base)
	if err != nil {
		slog.WarnContext(ctx, "Rate refresh failed, keeping previous table", "base", base, "error", err)
		s.center.Error("Updating exchange rates failed, using previous rates")
		return fmt.Errorf("refresh rates: %w", err)
	}

	s.mu.Lock()
	s.table = fresh
	s.mu.Unlock()

	if blob, err := json.Marshal(fresh); err == nil {
		if err := s.kv.Save(ctx, storage.KeyExchangeRates, blob); err != nil {
			slog.WarnContext(ctx, "Failed to persist rate table", "error", err)
		}
	}
	slog.InfoContext(ctx, "Exchange rates updated", "base", base, "currencies", len(fresh.Rates))
	return nil
}
