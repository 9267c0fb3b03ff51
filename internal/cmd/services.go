package cmd

import (
	"github.com/stationlink/stationlink/internal/config"
	"github.com/stationlink/stationlink/internal/discord"
	"github.com/stationlink/stationlink/internal/servers"
	"github.com/stationlink/stationlink/internal/topic"
)

// newTopicClient builds the topic client from config.
func newTopicClient(cfg *config.Config) *topic.Client {
	return topic.NewClient(cfg.TopicTimeout())
}

// newAggregator builds the server status aggregator over every configured
// server.
func newAggregator(cfg *config.Config, client *topic.Client, opts ...servers.Option) *servers.Aggregator {
	targets := make([]servers.Target, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		targets = append(targets, servers.Target{
			Name:              s.Name,
			Address:           s.Address,
			ConnectionAddress: s.ConnectionAddress,
			ErrorMessage:      s.ErrorMessage,
		})
	}
	return servers.NewAggregator(client, targets, opts...)
}

// newDiscordBuckets sizes the shared Discord buckets from config. They are
// built once per process and shared by every request.
func newDiscordBuckets(cfg *config.Config) *discord.Buckets {
	limits := cfg.Discord.RateLimits
	return discord.NewBuckets(discord.Limits{
		Global:        discord.Limit{Capacity: limits.Global.Capacity, Interval: limits.Global.Interval},
		GetMember:     discord.Limit{Capacity: limits.GetMember.Capacity, Interval: limits.GetMember.Interval},
		SearchMembers: discord.Limit{Capacity: limits.SearchMembers.Capacity, Interval: limits.SearchMembers.Interval},
	})
}

// newDiscordClient builds the Discord client around buckets.
func newDiscordClient(cfg *config.Config, buckets *discord.Buckets) *discord.Client {
	return &discord.Client{
		BaseURL:     cfg.Discord.BaseURL,
		Token:       cfg.Discord.Token,
		GuildID:     cfg.Discord.Guild,
		PatreonRole: cfg.Discord.PatreonRole,
		Buckets:     buckets,
	}
}
