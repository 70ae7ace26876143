package riotapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	// RankedSoloQueue is the league queue walked by the collector.
	RankedSoloQueue = "RANKED_SOLO_5x5"
	// rankedSoloQueueID filters match history to ranked solo/duo games.
	rankedSoloQueueID = 420
)

type Client struct {
	apiKey      string
	httpClient  *http.Client
	platformURL string
	regionalURL string
	limiter     Limiter
	timer       backoff.Timer
	logger      zerolog.Logger
}

// Options configures a Client. Only APIKey is required.
type Options struct {
	APIKey string
	// Region is the platform routing value, e.g. "na1".
	Region string
	// RegionalEndpoint is the match-v5 routing value, e.g. "americas".
	RegionalEndpoint string

	// PlatformBaseURL and RegionalBaseURL override the hosts derived from
	// Region and RegionalEndpoint.
	PlatformBaseURL string
	RegionalBaseURL string

	Limiter    Limiter
	HTTPClient *http.Client
	// Timer drives the waits between throttled attempts. nil uses a real timer.
	Timer  backoff.Timer
	Logger zerolog.Logger
}

// NewClient creates and returns a new Client instance for interacting with the Riot API.
// Without an explicit Limiter it enforces 100 requests per 2 minutes and 20 per second.
func NewClient(opts Options) *Client {
	if opts.Region == "" {
		opts.Region = "na1"
	}
	if opts.RegionalEndpoint == "" {
		opts.RegionalEndpoint = "americas"
	}
	if opts.PlatformBaseURL == "" {
		opts.PlatformBaseURL = fmt.Sprintf("https://%s.api.riotgames.com", opts.Region)
	}
	if opts.RegionalBaseURL == "" {
		opts.RegionalBaseURL = fmt.Sprintf("https://%s.api.riotgames.com", opts.RegionalEndpoint)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: time.Second * 10}
	}
	if opts.Limiter == nil {
		opts.Limiter = MultiLimiter{
			NewSlidingWindow(100, 2*time.Minute, opts.Logger),
			NewRateLimiter(20, 20),
		}
	}

	return &Client{
		apiKey:      opts.APIKey,
		httpClient:  opts.HTTPClient,
		platformURL: strings.TrimRight(opts.PlatformBaseURL, "/"),
		regionalURL: strings.TrimRight(opts.RegionalBaseURL, "/"),
		limiter:     opts.Limiter,
		timer:       opts.Timer,
		logger:      opts.Logger,
	}
}

// GetLeagueEntries fetch one page of ranked solo players in a tier and division.
// An empty slice means the ladder has no more players past that page.
func (c *Client) GetLeagueEntries(ctx context.Context, tier, division string, page int) ([]LeagueEntry, error) {
	url := fmt.Sprintf("%s/lol/league/v4/entries/%s/%s/%s?page=%d",
		c.platformURL, RankedSoloQueue, strings.ToUpper(tier), strings.ToUpper(division), page)

	var entries []LeagueEntry
	if err := c.getJSON(ctx, "league-entries", url, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetSummoner fetch summoner data by their encrypted summoner id.
func (c *Client) GetSummoner(ctx context.Context, summonerID string) (*Summoner, error) {
	url := fmt.Sprintf("%s/lol/summoner/v4/summoners/%s", c.platformURL, url.PathEscape(summonerID))

	var summoner Summoner
	if err := c.getJSON(ctx, "summoner", url, &summoner); err != nil {
		return nil, err
	}
	return &summoner, nil
}

// GetRankedSoloMatchIDs retrieves the last count ranked solo match ids of a player.
func (c *Client) GetRankedSoloMatchIDs(ctx context.Context, puuid string, count int) ([]string, error) {
	url := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?queue=%d&count=%d",
		c.regionalURL, url.PathEscape(puuid), rankedSoloQueueID, count)

	var matchIDs []string
	if err := c.getJSON(ctx, "match-ids", url, &matchIDs); err != nil {
		return nil, err
	}
	return matchIDs, nil
}

// GetMatchRaw fetch the full match payload, returned verbatim.
func (c *Client) GetMatchRaw(ctx context.Context, matchID string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalURL, url.PathEscape(matchID))

	body, err := c.makeRequest(ctx, "match", url)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		c.logger.Error().Str("match_id", matchID).Msg("API Error: match payload is not valid JSON")
		return nil, fmt.Errorf("match %s: response is not valid JSON", matchID)
	}
	return json.RawMessage(body), nil
}

type Summoner struct {
	RiotSummonerID string `json:"id"`
	RiotAccountID  string `json:"accountId"`
	SummonerPUUID  string `json:"puuid"`
	ProfileIconID  int    `json:"profileIconId"`
	RevisionDate   int64  `json:"revisionDate"`
	SummonerLevel  int    `json:"summonerLevel"`
}

type LeagueEntry struct {
	LeagueID     string `json:"leagueId"`
	SummonerID   string `json:"summonerId"`
	PUUID        string `json:"puuid"`
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	HotStreak    bool   `json:"hotStreak"`
	Veteran      bool   `json:"veteran"`
	FreshBlood   bool   `json:"freshBlood"`
	Inactive     bool   `json:"inactive"`
}
