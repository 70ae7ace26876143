// Package notify posts collection progress to a Discord channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/tristan-derez/match-collector/internal/collector"
	u "github.com/tristan-derez/match-collector/internal/utils"
)

// maxMessageLength is Discord's limit for a plain message.
const maxMessageLength = 2000

// sender is the part of a discordgo session the notifier needs.
type sender interface {
	ChannelMessageSend(channelID, content string, options ...dg.RequestOption) (*dg.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *dg.MessageEmbed, options ...dg.RequestOption) (*dg.Message, error)
}

// Discord sends a report per finished bucket and a summary per run.
type Discord struct {
	session   sender
	channelID string
	retry     u.RetryConfig
	logger    zerolog.Logger
}

// NewDiscord creates a REST-only session; no gateway connection is opened.
func NewDiscord(token, channelID string, logger zerolog.Logger) (*Discord, error) {
	session, err := dg.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return newDiscord(session, channelID, logger), nil
}

func newDiscord(session sender, channelID string, logger zerolog.Logger) *Discord {
	return &Discord{
		session:   session,
		channelID: channelID,
		retry:     u.RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second},
		logger:    logger,
	}
}

func (d *Discord) BucketComplete(ctx context.Context, result collector.BucketResult) {
	embed := bucketEmbed(result)
	err := d.send(ctx, func() error {
		_, err := d.session.ChannelMessageSendEmbed(d.channelID, embed)
		return err
	})
	if err != nil {
		d.logger.Warn().Err(err).Stringer("bucket", result.Bucket).Msg("Failed to send bucket report")
	}
}

func (d *Discord) RunComplete(ctx context.Context, summary collector.Summary) {
	for _, chunk := range u.ChunkMessage(formatSummary(summary), maxMessageLength) {
		err := d.send(ctx, func() error {
			_, err := d.session.ChannelMessageSend(d.channelID, chunk)
			return err
		})
		if err != nil {
			d.logger.Warn().Err(err).Msg("Failed to send run summary")
			return
		}
	}
}

// send retries transient failures. Reports are still delivered while the run shuts down.
func (d *Discord) send(ctx context.Context, op func() error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	return u.RetryWithBackoff(ctx, func() error {
		err := op()
		var restErr *dg.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil &&
			restErr.Response.StatusCode >= 400 && restErr.Response.StatusCode < 500 &&
			restErr.Response.StatusCode != http.StatusTooManyRequests {
			return u.NewNonRetryableError(err)
		}
		return err
	}, d.retry)
}

func bucketEmbed(result collector.BucketResult) *dg.MessageEmbed {
	var outcome string
	switch {
	case result.Collected >= result.Quota:
		outcome = "Quota reached"
	case result.Failed:
		outcome = "Ladder unavailable"
	default:
		outcome = "Ladder exhausted"
	}

	pages := "none"
	if result.LastPage > 0 {
		pages = fmt.Sprintf("%d-%d", result.FirstPage, result.LastPage)
	}

	return &dg.MessageEmbed{
		Title: fmt.Sprintf("%s %s", u.DisplayTier(result.Bucket.Tier), result.Bucket.Division),
		Color: u.GetRankColor(result.Bucket.Tier),
		Fields: []*dg.MessageEmbedField{
			{
				Name:   "Collected",
				Value:  fmt.Sprintf("%d/%d", result.Collected, result.Quota),
				Inline: true,
			},
			{
				Name:   "Pages",
				Value:  pages,
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  u.FormatDuration(result.Duration),
				Inline: true,
			},
		},
		Footer: &dg.MessageEmbedFooter{
			Text: outcome,
		},
	}
}

func formatSummary(summary collector.Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "**Collection run finished** (%s)\n", u.FormatDuration(summary.Duration))
	if summary.RunID != "" {
		fmt.Fprintf(&sb, "Run `%s`\n", summary.RunID)
	}
	fmt.Fprintf(&sb, "%d new matches across %d buckets\n", summary.Collected, len(summary.Buckets))

	for _, b := range summary.Buckets {
		fmt.Fprintf(&sb, "• %s %s: %d/%d\n", u.DisplayTier(b.Bucket.Tier), b.Bucket.Division, b.Collected, b.Quota)
	}
	if summary.StoppedAfterTopTier {
		sb.WriteString("Stopped after the top tier.\n")
	}

	return sb.String()
}
