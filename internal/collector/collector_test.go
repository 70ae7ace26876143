package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
	"github.com/tristan-derez/match-collector/internal/storage"
	"github.com/tristan-derez/match-collector/internal/testutil"
)

type noLimit struct{}

func (noLimit) Admit(context.Context) error { return nil }

type recordedSleeps struct{ waits []time.Duration }

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

// harness wires the real client, archive and stores against a mock Riot API.
type harness struct {
	mock        *testutil.MockRiot
	dir         string
	checkpoints *storage.FileCheckpointStore
	sleeps      *recordedSleeps
	collector   *Collector
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	mock := testutil.NewMockRiot()
	t.Cleanup(mock.Close)

	dir := t.TempDir()
	logger := zerolog.Nop()
	client := riotapi.NewClient(riotapi.Options{
		APIKey:          "RGAPI-test",
		PlatformBaseURL: mock.URL(),
		RegionalBaseURL: mock.URL(),
		Limiter:         noLimit{},
		Logger:          logger,
	})

	checkpoints := storage.NewFileCheckpointStore(filepath.Join(dir, "state.json"))
	archive := storage.NewMatchArchive(
		storage.NewFileStore(filepath.Join(dir, "matches")),
		storage.NewCSVIndex(filepath.Join(dir, "match_ids.csv")),
		client,
		logger,
	)
	sleeps := &recordedSleeps{}
	c := New(client, NewPUUIDCache(client, logger), checkpoints, archive, cfg, logger).WithSleep(sleeps.sleep)

	return &harness{mock: mock, dir: dir, checkpoints: checkpoints, sleeps: sleeps, collector: c}
}

func ladderKey(tier, division string, page int) string {
	return fmt.Sprintf("/lol/league/v4/entries/RANKED_SOLO_5x5/%s/%s?page=%d", tier, division, page)
}

func TestCollector_EndToEndSilverII(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quota = 2
	cfg.Tiers = []string{"SILVER"}
	h := newHarness(t, cfg)

	h.mock.JSON(ladderKey("SILVER", "II", 1), []riotapi.LeagueEntry{{SummonerID: "s-1"}, {SummonerID: "s-2"}})
	h.mock.JSON("/lol/summoner/v4/summoners/s-1", riotapi.Summoner{RiotSummonerID: "s-1", SummonerPUUID: "p-1"})
	h.mock.JSON("/lol/summoner/v4/summoners/s-2", riotapi.Summoner{RiotSummonerID: "s-2", SummonerPUUID: "p-2"})
	h.mock.JSON("/lol/match/v5/matches/by-puuid/p-1/ids?queue=420&count=10", []string{"NA1_1"})
	h.mock.JSON("/lol/match/v5/matches/by-puuid/p-2/ids?queue=420&count=10", []string{"NA1_2"})
	h.mock.Script("/lol/match/v5/matches/NA1_1", testutil.MockResponse{Body: `{"metadata":{"matchId":"NA1_1"}}`})
	h.mock.Script("/lol/match/v5/matches/NA1_2", testutil.MockResponse{Body: `{"metadata":{"matchId":"NA1_2"}}`})

	summary, err := h.collector.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var silverII *BucketResult
	for i := range summary.Buckets {
		if summary.Buckets[i].Bucket == riotapi.NewBucket("SILVER", "II") {
			silverII = &summary.Buckets[i]
		}
	}
	if silverII == nil {
		t.Fatal("SILVER II missing from summary")
	}
	if silverII.Collected != 2 || silverII.LastPage != 1 {
		t.Errorf("SILVER II collected %d up to page %d, want 2 and 1", silverII.Collected, silverII.LastPage)
	}

	for _, id := range []string{"NA1_1", "NA1_2"} {
		if _, err := os.Stat(filepath.Join(h.dir, "matches", "silver", "II", id+".json")); err != nil {
			t.Errorf("match file %s: %v", id, err)
		}
	}

	f, err := os.Open(filepath.Join(h.dir, "match_ids.csv"))
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	defer f.Close()
	rows, _ := csv.NewReader(f).ReadAll()
	if len(rows) != 3 {
		t.Errorf("index rows = %d, want header + 2", len(rows))
	}

	checkpoints, err := h.checkpoints.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if page := checkpoints.Page(riotapi.NewBucket("SILVER", "II")); page != 1 {
		t.Errorf("SILVER II checkpoint = %d, want 1", page)
	}

	if n := h.mock.Count(ladderKey("SILVER", "II", 2)); n != 0 {
		t.Errorf("page 2 requested %d times, want 0", n)
	}
	if len(h.sleeps.waits) != 0 {
		t.Errorf("page pauses = %v, want none once the quota is met", h.sleeps.waits)
	}
}

func TestCollector_ResumesFromCheckpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quota = 5
	cfg.Tiers = []string{"SILVER"}
	h := newHarness(t, cfg)

	saved := storage.Checkpoints{}
	saved.Set(riotapi.NewBucket("SILVER", "II"), 3)
	if err := h.checkpoints.Save(context.Background(), saved); err != nil {
		t.Fatal(err)
	}
	h.mock.JSON(ladderKey("SILVER", "II", 3), []riotapi.LeagueEntry{})

	if _, err := h.collector.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	prefix := "/lol/league/v4/entries/RANKED_SOLO_5x5/SILVER/II?"
	for _, r := range h.mock.Requests() {
		if strings.HasPrefix(r, prefix) {
			if !strings.HasSuffix(r, "page=3") {
				t.Errorf("first SILVER II listing = %s, want page=3", r)
			}
			return
		}
	}
	t.Error("SILVER II was never listed")
}

// stubLadder is an in-memory LadderAPI.
type stubLadder struct {
	pages     map[string][]riotapi.LeagueEntry
	failing   map[string]bool
	matchIDs  map[string][]string
	idErrors  map[string]error
	listCalls map[string]int
	idCalls   map[string]int
}

func newStubLadder() *stubLadder {
	return &stubLadder{
		pages:     map[string][]riotapi.LeagueEntry{},
		failing:   map[string]bool{},
		matchIDs:  map[string][]string{},
		idErrors:  map[string]error{},
		listCalls: map[string]int{},
		idCalls:   map[string]int{},
	}
}

func (s *stubLadder) GetLeagueEntries(_ context.Context, tier, division string, page int) ([]riotapi.LeagueEntry, error) {
	bucket := tier + " " + division
	s.listCalls[bucket]++
	if s.failing[bucket] {
		return nil, &riotapi.RiotAPIError{StatusCode: 503, Message: "unavailable"}
	}
	return s.pages[fmt.Sprintf("%s %d", bucket, page)], nil
}

func (s *stubLadder) GetRankedSoloMatchIDs(_ context.Context, puuid string, count int) ([]string, error) {
	s.idCalls[puuid]++
	if err := s.idErrors[puuid]; err != nil {
		return nil, err
	}
	ids := s.matchIDs[puuid]
	if len(ids) > count {
		ids = ids[:count]
	}
	return ids, nil
}

// memArchive is an in-memory Archive.
type memArchive struct {
	stored  map[riotapi.Bucket]map[string]bool
	missing map[string]bool
	// failOnce makes the first fetch of an id fail, as a transient API error would.
	failOnce map[string]bool
	err      error
	fetches  map[string]int
}

func newMemArchive() *memArchive {
	return &memArchive{
		stored:   map[riotapi.Bucket]map[string]bool{},
		missing:  map[string]bool{},
		failOnce: map[string]bool{},
		fetches:  map[string]int{},
	}
}

func (a *memArchive) Has(_ context.Context, b riotapi.Bucket, id string) (bool, error) {
	return a.stored[b][id], nil
}

func (a *memArchive) FetchAndStore(_ context.Context, b riotapi.Bucket, id string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	if a.stored[b][id] {
		return false, nil
	}
	a.fetches[id]++
	if a.missing[id] {
		return false, nil
	}
	if a.failOnce[id] {
		delete(a.failOnce, id)
		return false, nil
	}
	if a.stored[b] == nil {
		a.stored[b] = map[string]bool{}
	}
	a.stored[b][id] = true
	return true, nil
}

type memCheckpoints struct {
	saved storage.Checkpoints
	saves int
}

func (m *memCheckpoints) Load(context.Context) (storage.Checkpoints, error) {
	out := storage.Checkpoints{}
	for tier, divisions := range m.saved {
		for division, page := range divisions {
			out.Set(riotapi.Bucket{Tier: tier, Division: division}, page)
		}
	}
	return out, nil
}

func (m *memCheckpoints) Save(_ context.Context, c storage.Checkpoints) error {
	m.saves++
	m.saved = storage.Checkpoints{}
	for tier, divisions := range c {
		for division, page := range divisions {
			m.saved.Set(riotapi.Bucket{Tier: tier, Division: division}, page)
		}
	}
	return nil
}

type recordingNotifier struct {
	buckets []BucketResult
	runs    int
}

func (r *recordingNotifier) BucketComplete(_ context.Context, result BucketResult) {
	r.buckets = append(r.buckets, result)
}

func (r *recordingNotifier) RunComplete(context.Context, Summary) { r.runs++ }

func newStubCollector(api *stubLadder, lookup SummonerLookup, archive Archive, cfg Config) (*Collector, *memCheckpoints, *recordedSleeps) {
	checkpoints := &memCheckpoints{}
	sleeps := &recordedSleeps{}
	c := New(api, NewPUUIDCache(lookup, zerolog.Nop()), checkpoints, archive, cfg, zerolog.Nop()).WithSleep(sleeps.sleep)
	return c, checkpoints, sleeps
}

func TestCollector_PagesUntilQuota(t *testing.T) {
	api := newStubLadder()
	api.pages["GOLD I 1"] = []riotapi.LeagueEntry{{SummonerID: "s-1"}, {SummonerID: "s-nopuuid"}}
	api.pages["GOLD I 2"] = []riotapi.LeagueEntry{{SummonerID: "s-1"}, {SummonerID: "s-2"}}
	api.matchIDs["p-1"] = []string{"M1", "M2", "M3", "M4", "M5", "M6", "M7"}
	api.matchIDs["p-2"] = []string{"M8", "M9"}
	lookup := newStubLookup(map[string]string{"s-1": "p-1", "s-2": "p-2"})
	archive := newMemArchive()
	archive.missing["M2"] = true

	cfg := DefaultConfig()
	cfg.Quota = 6
	cfg.Tiers = []string{"GOLD"}
	c, checkpoints, sleeps := newStubCollector(api, lookup, archive, cfg)

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Only the first five ids of p-1 count, and M2 cannot be fetched: 4 from page 1.
	// s-1 reappears on page 2 and is walked again without a new lookup; only M2 is
	// retried since the rest are archived. p-2 brings the last 2.
	gold := archive.stored[riotapi.NewBucket("GOLD", "I")]
	if len(gold) != 6 {
		t.Errorf("stored = %v, want 6 matches", gold)
	}
	if gold["M6"] || gold["M7"] {
		t.Error("ids past the fifth should be ignored")
	}
	if lookup.calls["s-1"] != 1 {
		t.Errorf("s-1 lookups = %d, want 1", lookup.calls["s-1"])
	}
	if api.idCalls["p-1"] != 2 {
		t.Errorf("p-1 match id listings = %d, want 2", api.idCalls["p-1"])
	}
	if archive.fetches["M1"] != 1 || archive.fetches["M2"] != 2 {
		t.Errorf("fetches = %v, want M1 once and M2 twice", archive.fetches)
	}
	if page := checkpoints.saved.Page(riotapi.NewBucket("GOLD", "I")); page != 2 {
		t.Errorf("checkpoint = %d, want 2", page)
	}
	if len(sleeps.waits) != 1 || sleeps.waits[0] != cfg.PageDelay {
		t.Errorf("page pauses = %v, want one of %v", sleeps.waits, cfg.PageDelay)
	}
	if summary.Collected != 6 {
		t.Errorf("summary collected = %d, want 6", summary.Collected)
	}
}

func TestCollector_RewalksPlayerAfterTransientFailure(t *testing.T) {
	api := newStubLadder()
	api.pages["SILVER I 1"] = []riotapi.LeagueEntry{{SummonerID: "s-1"}}
	api.pages["SILVER I 2"] = []riotapi.LeagueEntry{{SummonerID: "s-1"}}
	api.matchIDs["p-1"] = []string{"NA1_1"}
	lookup := newStubLookup(map[string]string{"s-1": "p-1"})
	archive := newMemArchive()
	archive.failOnce["NA1_1"] = true

	cfg := DefaultConfig()
	cfg.Quota = 1
	cfg.Tiers = []string{"SILVER"}
	c, _, _ := newStubCollector(api, lookup, archive, cfg)

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	last := summary.Buckets[len(summary.Buckets)-1]
	if last.Bucket != riotapi.NewBucket("SILVER", "I") || last.Collected != 1 {
		t.Errorf("last bucket = %s collected %d, want SILVER I collected 1", last.Bucket, last.Collected)
	}
	if api.idCalls["p-1"] != 2 || archive.fetches["NA1_1"] != 2 {
		t.Errorf("match id listings = %d, fetches = %d; want 2 and 2", api.idCalls["p-1"], archive.fetches["NA1_1"])
	}
	if lookup.calls["s-1"] != 1 {
		t.Errorf("s-1 lookups = %d, want 1", lookup.calls["s-1"])
	}
}

func TestCollector_CountsMissingMatchHistories(t *testing.T) {
	api := newStubLadder()
	api.pages["IRON IV 1"] = []riotapi.LeagueEntry{{SummonerID: "s-1"}, {SummonerID: "s-2"}}
	api.idErrors["p-1"] = &riotapi.RiotAPIError{StatusCode: 404, Message: "not found"}
	api.idErrors["p-2"] = &riotapi.RiotAPIError{StatusCode: 500, Message: "oops"}

	cfg := DefaultConfig()
	cfg.Quota = 1
	cfg.Tiers = []string{"IRON"}
	c, _, _ := newStubCollector(api, newStubLookup(map[string]string{"s-1": "p-1", "s-2": "p-2"}), newMemArchive(), cfg)

	notFound := playersSkippedTotal.WithLabelValues("match_ids_not_found")
	failed := playersSkippedTotal.WithLabelValues("match_ids_error")
	beforeNotFound, beforeFailed := promtest.ToFloat64(notFound), promtest.ToFloat64(failed)

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := promtest.ToFloat64(notFound) - beforeNotFound; got != 1 {
		t.Errorf("not found skips = %v, want 1", got)
	}
	if got := promtest.ToFloat64(failed) - beforeFailed; got != 1 {
		t.Errorf("error skips = %v, want 1", got)
	}
}

func TestCollector_CheckpointSavedEvenWhenPageYieldsNothing(t *testing.T) {
	api := newStubLadder()
	api.pages["IRON IV 1"] = []riotapi.LeagueEntry{{SummonerID: "s-unknown"}}
	archive := newMemArchive()

	cfg := DefaultConfig()
	cfg.Quota = 1
	cfg.Tiers = []string{"IRON"}
	c, checkpoints, _ := newStubCollector(api, newStubLookup(nil), archive, cfg)

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if page := checkpoints.saved.Page(riotapi.NewBucket("IRON", "IV")); page != 1 {
		t.Errorf("IRON IV checkpoint = %d, want 1", page)
	}
	if api.listCalls["IRON IV"] != 2 {
		t.Errorf("IRON IV listings = %d, want 2 (page 1, then empty page 2)", api.listCalls["IRON IV"])
	}
}

func TestCollector_TopTierEndsRun(t *testing.T) {
	api := newStubLadder()
	api.failing["IRON I"] = true
	notifier := &recordingNotifier{}

	cfg := DefaultConfig()
	cfg.Quota = 3
	cfg.Tiers = []string{"IRON", "SILVER"}
	c, _, _ := newStubCollector(api, newStubLookup(nil), newMemArchive(), cfg)
	c.WithNotifier(notifier)

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !summary.StoppedAfterTopTier {
		t.Error("run should stop on the top tier cutoff")
	}
	last := summary.Buckets[len(summary.Buckets)-1].Bucket
	if last != riotapi.NewBucket("SILVER", "I") {
		t.Errorf("last bucket = %s, want SILVER I", last)
	}
	if api.listCalls["IRON I"] != 1 {
		t.Errorf("IRON I listings = %d, want 1 (no revisit)", api.listCalls["IRON I"])
	}
	if len(notifier.buckets) != 8 || notifier.runs != 1 {
		t.Errorf("notifications = %d buckets, %d runs; want 8, 1", len(notifier.buckets), notifier.runs)
	}
}

func TestCollector_RevisitsFailedBucketsWithoutCutoff(t *testing.T) {
	api := newStubLadder()
	api.failing["IRON I"] = true

	cfg := DefaultConfig()
	cfg.Quota = 3
	cfg.Tiers = []string{"IRON"}
	cfg.StopAfterTopTier = false
	cfg.MaxPasses = 2
	c, _, _ := newStubCollector(api, newStubLookup(nil), newMemArchive(), cfg)

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.StoppedAfterTopTier {
		t.Error("cutoff is disabled")
	}
	if api.listCalls["IRON I"] != 2 {
		t.Errorf("IRON I listings = %d, want 2", api.listCalls["IRON I"])
	}
	if len(summary.Buckets) != 5 {
		t.Errorf("bucket results = %d, want 4 + 1 revisit", len(summary.Buckets))
	}
}

func TestCollector_StorageErrorAbortsRun(t *testing.T) {
	api := newStubLadder()
	api.pages["IRON I 1"] = []riotapi.LeagueEntry{{SummonerID: "s-1"}}
	api.matchIDs["p-1"] = []string{"M1"}
	archive := newMemArchive()
	archive.err = errors.New("disk full")

	cfg := DefaultConfig()
	cfg.Quota = 1
	cfg.Tiers = []string{"IRON"}
	c, checkpoints, _ := newStubCollector(api, newStubLookup(map[string]string{"s-1": "p-1"}), archive, cfg)

	if _, err := c.Run(context.Background()); err == nil {
		t.Fatal("expected the storage error to end the run")
	}
	if checkpoints.saves != 0 {
		t.Errorf("checkpoint saves = %d, want 0", checkpoints.saves)
	}
}

func TestCollector_RejectsNonPositiveQuota(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quota = 0
	c, _, _ := newStubCollector(newStubLadder(), newStubLookup(nil), newMemArchive(), cfg)

	if _, err := c.Run(context.Background()); err == nil {
		t.Error("expected an error for a zero quota")
	}
}
